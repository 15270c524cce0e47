// ScriptOn - Telegram front end for LLM-driven command execution
// License: MIT
//
// Copyright (c) 2026 ScriptOn contributors

package main

func main() {
	Execute()
}
