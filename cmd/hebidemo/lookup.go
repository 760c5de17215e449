package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

type LookupCommand struct {
	Pick bool `long:"pick" description:"Interactively select actuators and print their names"`
}

func (c *LookupCommand) Execute(args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	lookup, err := s.openLookup(ctx, false)
	if err != nil {
		return err
	}
	defer lookup.Close()

	if err := s.waitDiscovery(ctx, lookup); err != nil {
		return err
	}

	entries := lookup.Entries()
	fmt.Println(headerStyle.Render("HEBI motors found on network:"))
	fmt.Println(renderDirectory(entries))

	if !c.Pick || len(entries) == 0 {
		return nil
	}
	names, err := pickNames(entries, nil)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Selected: ") + strings.Join(names, " "))
	return nil
}

func renderDirectory(entries []hebi.Entry) string {
	if len(entries) == 0 {
		return dimStyle.Render("  (none)")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("FAMILY", "NAME", "ADDRESS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, e := range entries {
		t.Row(e.Family, e.Name, e.Address)
	}
	return t.Render()
}
