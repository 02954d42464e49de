package cli

import (
	"fmt"
	"os"

	"github.com/nothingworksright/unblinkingbot/internal/config"
)

// RunStatus displays the current configuration with styled output.
// tokenSet reports whether a Slack token is present in the store.
func RunStatus(cfg *config.Config, tokenSet bool) {
	cfgPath := config.ConfigPath()

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s unblinkingbot Status", Logo)))
	fmt.Println()

	fmt.Printf("  %-12s %s  %s\n", "Config", StatusBadge(fileExists(cfgPath)), DimStyle.Render(cfgPath))
	fmt.Printf("  %-12s %s  %s\n", "Database", StatusBadge(fileExists(cfg.DatabasePath)), DimStyle.Render(cfg.DatabasePath))
	fmt.Printf("  %-12s %s\n", "Port", fmt.Sprint(cfg.Port))
	fmt.Printf("  %-12s %s\n", "Bot name", cfg.BotName)
	fmt.Printf("  %-12s %s  %s\n", "Slack token", StatusBadge(tokenSet), DimStyle.Render("set with: unblinkingbot token <value>"))
	fmt.Printf("  %-12s %s %s\n", "Retention", fmt.Sprint(cfg.RetainCount),
		DimStyle.Render("records under "+cfg.ActivityPrefix))
	fmt.Println()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
