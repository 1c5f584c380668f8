package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/vla/pkg/tasks"
)

type TasksCommand struct {
	File string `long:"file" description:"TOML file with extra [tasks.<name>] tables"`
}

func loadRegistry(file string) (*tasks.Registry, error) {
	r := tasks.Default()
	if file != "" {
		if err := r.LoadFile(file); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (c *TasksCommand) Execute(args []string) error {
	r, err := loadRegistry(c.File)
	if err != nil {
		return err
	}

	rows := make([][]string, 0)
	for _, name := range r.Names() {
		t, err := r.Lookup(name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", t.EpisodeLen),
			strings.Join(t.CameraNames, ", "),
			strings.Join(t.DatasetDirs, "\n"),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Task", "Episode len", "Cameras", "Datasets").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return nameStyle
			}
			return cellStyle
		})

	fmt.Println(t.Render())
	return nil
}
