package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const maxDisplayedItems = 10

var ErrCancelled = errors.New("cancelled")

type SelectItem struct {
	Name        string
	Description string
}

// MultiSelect shows a raw-mode picker on stderr: type to filter, space
// toggles the highlighted item, ctrl-a toggles everything, enter
// confirms. Returns the toggled names in item order; esc or ctrl-c
// returns ErrCancelled.
func MultiSelect(prompt string, items []SelectItem) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to select from")
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal; pass model names or --all")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	defer term.Restore(fd, oldState)

	fmt.Fprint(os.Stderr, "\033[?25l")
	defer fmt.Fprint(os.Stderr, "\033[?25h")

	var filter string
	toggled := make(map[string]bool)
	selected := 0
	scrollOffset := 0
	var lastLineCount int

	render := func() {
		filtered := filterItems(items, filter)

		if lastLineCount > 0 {
			fmt.Fprintf(os.Stderr, "\033[%dA", lastLineCount)
		}
		fmt.Fprint(os.Stderr, "\033[J")

		fmt.Fprintf(os.Stderr, "%s %s\r\n", prompt, filter)
		lineCount := 1

		if len(filtered) == 0 {
			fmt.Fprintf(os.Stderr, "  \033[37m(no matches)\033[0m\r\n")
			lineCount++
		} else {
			displayCount := min(len(filtered), maxDisplayedItems)

			for i := 0; i < displayCount; i++ {
				idx := scrollOffset + i
				if idx >= len(filtered) {
					break
				}
				item := filtered[idx]

				mark := " "
				if toggled[item.Name] {
					mark = "x"
				}

				line := fmt.Sprintf("[%s] %s", mark, item.Name)
				if item.Description != "" {
					line += fmt.Sprintf(" \033[37m- %s\033[0m", item.Description)
				}

				if idx == selected {
					fmt.Fprintf(os.Stderr, "  \033[1m> %s\033[0m\r\n", line)
				} else {
					fmt.Fprintf(os.Stderr, "    %s\r\n", line)
				}
				lineCount++
			}

			if remaining := len(filtered) - scrollOffset - displayCount; remaining > 0 {
				fmt.Fprintf(os.Stderr, "  \033[37m... and %d more\033[0m\r\n", remaining)
				lineCount++
			}
		}

		fmt.Fprintf(os.Stderr, "  \033[37mspace: toggle · ctrl-a: all · enter: confirm\033[0m\r\n")
		lineCount++

		lastLineCount = lineCount
	}

	clearUI := func() {
		if lastLineCount > 0 {
			fmt.Fprintf(os.Stderr, "\033[%dA", lastLineCount)
			fmt.Fprint(os.Stderr, "\033[J")
		}
	}

	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, err
		}

		filtered := filterItems(items, filter)

		switch {
		case n == 1 && buf[0] == 13: // Enter
			clearUI()
			var names []string
			for _, item := range items {
				if toggled[item.Name] {
					names = append(names, item.Name)
				}
			}
			return names, nil
		case n == 1 && (buf[0] == 3 || buf[0] == 27): // Ctrl+C or Escape
			clearUI()
			return nil, ErrCancelled
		case n == 1 && buf[0] == 32: // Space toggles
			if len(filtered) > 0 && selected < len(filtered) {
				name := filtered[selected].Name
				toggled[name] = !toggled[name]
			}
		case n == 1 && buf[0] == 1: // Ctrl+A toggles everything visible
			allOn := true
			for _, item := range filtered {
				if !toggled[item.Name] {
					allOn = false
					break
				}
			}
			for _, item := range filtered {
				toggled[item.Name] = !allOn
			}
		case n == 1 && buf[0] == 127: // Backspace
			if len(filter) > 0 {
				filter = filter[:len(filter)-1]
				selected = 0
				scrollOffset = 0
			}
		case n == 3 && buf[0] == 27 && buf[1] == 91: // Arrow keys
			if buf[2] == 65 && selected > 0 { // Up
				selected--
				if selected < scrollOffset {
					scrollOffset = selected
				}
			} else if buf[2] == 66 && selected < len(filtered)-1 { // Down
				selected++
				if selected >= scrollOffset+maxDisplayedItems {
					scrollOffset = selected - maxDisplayedItems + 1
				}
			}
		case n == 1 && buf[0] > 32 && buf[0] < 127: // Printable chars
			filter += string(buf[0])
			selected = 0
			scrollOffset = 0
		}

		render()
	}
}

func filterItems(items []SelectItem, filter string) []SelectItem {
	if filter == "" {
		return items
	}

	var result []SelectItem
	filterLower := strings.ToLower(filter)
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), filterLower) {
			result = append(result, item)
		}
	}

	return result
}
