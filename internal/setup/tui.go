package setup

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/smoravej/ganjine/config"
	"gopkg.in/yaml.v3"
)

// GeneratedConfigFile is where the wizard writes its result.
const GeneratedConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes
// config.gen.yaml on confirmation.
func RunTUI() error {
	var (
		listenAddr         string
		dataDir            string
		bulkURL            string
		singleURL          string
		priceIntervalStr   string
		chartIntervalStr   string
		profitIntervalStr  string
		compareIntervalStr string
		confirm            bool
	)

	// defaults
	listenAddr = config.DefaultListenAddr
	dataDir = config.DefaultDataDir
	priceIntervalStr = config.DefaultPriceInterval.String()
	chartIntervalStr = config.DefaultChartInterval.String()
	profitIntervalStr = config.DefaultDailyProfitInterval.String()
	compareIntervalStr = config.DefaultComparisonInterval.String()

	// step 1: server
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("GANJINE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's set up your portfolio tracker.\n"))

	fmt.Println(stepStyle.Render("STEP 1: SERVER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port the API binds to (e.g. :8080)").
				Value(&listenAddr).
				Validate(validateListenAddr),
			huh.NewInput().
				Title("Data Directory").
				Description("Directory holding the ledger and series files").
				Value(&dataDir).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("data directory cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: price oracles
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GANJINE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: PRICE ORACLES"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bulk Quote URL").
				Description("Leave empty for the default endpoint").
				Value(&bulkURL),
			huh.NewInput().
				Title("Gold Page URL").
				Description("Leave empty for the default page").
				Value(&singleURL),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: schedules
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GANJINE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: SCHEDULES"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quote Refresh Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&priceIntervalStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Chart Recompute Interval").
				Value(&chartIntervalStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Daily Profit Recompute Interval").
				Value(&profitIntervalStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Comparison Recompute Interval").
				Value(&compareIntervalStr).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GANJINE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Listen: %s\nData dir: %s\nQuote refresh: %s\nChart: %s\nDaily profit: %s\nComparison: %s\n",
		listenAddr, dataDir, priceIntervalStr, chartIntervalStr, profitIntervalStr, compareIntervalStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	priceInterval, _ := time.ParseDuration(priceIntervalStr)
	chartInterval, _ := time.ParseDuration(chartIntervalStr)
	profitInterval, _ := time.ParseDuration(profitIntervalStr)
	compareInterval, _ := time.ParseDuration(compareIntervalStr)

	cfg := config.FileConfig{
		ListenAddr:          listenAddr,
		DataDir:             dataDir,
		BulkOracleURL:       bulkURL,
		SingleOracleURL:     singleURL,
		PriceInterval:       priceInterval,
		ChartInterval:       chartInterval,
		DailyProfitInterval: profitInterval,
		ComparisonInterval:  compareInterval,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(GeneratedConfigFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nStarting server...", GeneratedConfigFile)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateDuration(s string) error {
	_, err := time.ParseDuration(s)
	return err
}

func validateListenAddr(s string) error {
	if s == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("must be host:port (e.g. :8080)")
	}
	return nil
}
