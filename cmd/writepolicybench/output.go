// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Exit codes distinguish why a run stopped short of success.
const (
	ExitSuccess            = 0
	ExitManifestMismatch   = 1
	ExitMalformedEpisode   = 2
	ExitInvariantViolation = 3
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD7A7"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF5F"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7A7"))
)

// isTTY reports whether stdout is an interactive terminal, which gates
// whether styled output is worth emitting at all.
func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printTitle(text string) {
	if isTTY() {
		fmt.Println(styleTitle.Render(text))
		return
	}
	fmt.Println(text)
}

func printMuted(text string) {
	if isTTY() {
		fmt.Println(styleMuted.Render(text))
		return
	}
	fmt.Println(text)
}

func printError(msg string, err error) {
	line := fmt.Sprintf("error: %s: %v", msg, err)
	if isTTY() {
		fmt.Fprintln(os.Stderr, styleError.Render(line))
		return
	}
	fmt.Fprintln(os.Stderr, line)
}

func printWarning(text string) {
	if isTTY() {
		fmt.Println(styleWarning.Render("warning: " + text))
		return
	}
	fmt.Println("warning: " + text)
}

func printOK(text string) {
	if isTTY() {
		fmt.Println(styleOK.Render(text))
		return
	}
	fmt.Println(text)
}
