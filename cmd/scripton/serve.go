// ScriptOn - Telegram front end for LLM-driven command execution
// License: MIT
//
// Copyright (c) 2026 ScriptOn contributors

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/2P3-io/ScriptOn/pkg/agent"
	"github.com/2P3-io/ScriptOn/pkg/bus"
	"github.com/2P3-io/ScriptOn/pkg/channels"
	"github.com/2P3-io/ScriptOn/pkg/config"
	"github.com/2P3-io/ScriptOn/pkg/logger"
	"github.com/2P3-io/ScriptOn/pkg/providers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownGrace = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
			if err != nil {
				return err
			}

			logger.SetDebug(cfg.Debug)

			provider, err := providers.NewHTTPProvider(cfg.LLM.APIKey, cfg.LLM.APIBase, cfg.Telegram.Proxy, cfg.LLM.RequestTimeout)
			if err != nil {
				return err
			}
			provider.SetDebug(cfg.Debug)

			msgBus := bus.NewMessageBus()
			orchestrator := agent.NewOrchestrator(cfg, msgBus, provider)

			manager, err := channels.NewManager(cfg, msgBus)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := manager.StartAll(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				manager.StopAll(stopCtx)
			}()

			logger.InfoCF("gateway", "serving", map[string]any{
				"model": cfg.LLM.Model,
			})
			return orchestrator.Run(ctx)
		},
	}

	cmd.Flags().String("telegram-token", "", "Telegram bot token.")
	_ = viper.BindPFlag("telegram.token", cmd.Flags().Lookup("telegram-token"))
	cmd.Flags().String("api-key", "", "API key for the completion backend.")
	_ = viper.BindPFlag("llm.api_key", cmd.Flags().Lookup("api-key"))
	cmd.Flags().String("api-base", "", "Base URL of the completion backend.")
	_ = viper.BindPFlag("llm.api_base", cmd.Flags().Lookup("api-base"))
	cmd.Flags().String("model", "", "Model name to request.")
	_ = viper.BindPFlag("llm.model", cmd.Flags().Lookup("model"))
	cmd.Flags().String("workspace", "", "Directory for conversation and stats state.")
	_ = viper.BindPFlag("agent.workspace", cmd.Flags().Lookup("workspace"))

	return cmd
}
