// ABOUTME: Install Claude Code skill for civic
// ABOUTME: Writes the embedded SKILL.md that teaches Claude the civic MCP tools and CLI

package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/mcp"
	"github.com/spf13/cobra"
)

//go:embed skill/SKILL.md
var skillFS embed.FS

var skillSkipConfirm bool

var installSkillCmd = &cobra.Command{
	Use:   "install-skill",
	Short: "Install Claude Code skill",
	Long: `Install the civic skill for Claude Code.

This copies the skill definition to ~/.claude/skills/civic/
so Claude Code knows when to call the civic MCP tools.`,
	// The skill needs neither config nor the cache.
	PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		return installSkill(cmd, skillPath(home))
	},
}

func init() {
	installSkillCmd.Flags().BoolVarP(&skillSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installSkillCmd)
}

// skillPath is where Claude Code looks for the civic skill.
func skillPath(home string) string {
	return filepath.Join(home, ".claude", "skills", "civic", "SKILL.md")
}

func installSkill(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		return fmt.Errorf("failed to read embedded skill: %w", err)
	}

	fmt.Fprintln(out, "The civic skill lets Claude Code call these tools through 'civic mcp':")
	for _, name := range mcp.ToolNames {
		fmt.Fprintf(out, "  • mcp__civic__%s\n", name)
	}
	fmt.Fprintf(out, "\nDestination: %s\n", path)

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, "Note: the existing skill file will be overwritten.")
	}
	fmt.Fprintln(out)

	if !skillSkipConfirm && !askConfirm(cmd, "Install the civic skill?") {
		fmt.Fprintln(out, "Installation canceled.")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil { // #nosec G301 - skill dir needs to be readable
		return fmt.Errorf("failed to create skill directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil { // #nosec G306 - skill file needs to be readable
		return fmt.Errorf("failed to write skill file: %w", err)
	}

	color.New(color.FgGreen).Fprintln(out, "✓ Installed civic skill")
	fmt.Fprintln(out, `Try asking Claude: "Any potholes near me?" or "Report a broken street light"`)
	return nil
}
