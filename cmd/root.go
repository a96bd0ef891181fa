// Package cmd implements the command-line surface (C10): a cobra command
// tree exposing §6.1's scan flags, built on top of the orchestrator in
// package sim.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"uiccscan/card"
	"uiccscan/output"
	"uiccscan/scanconfig"
	"uiccscan/sim"
)

var version = "1.0.0"

var (
	// Global flags (§6.1)
	flagListReaders bool
	flagReaderIndex int
	flagADM1        string
	flagADM2        string
	flagADM3        string
	flagADM4        string
	flagCHV1        string
	flagCHV2        string
	flagContent3G   bool
	flagFileListIn  string
	flagOutputPath  string
)

var rootCmd = &cobra.Command{
	Use:   "uiccscan",
	Short: "Inventory the file system of a UICC/SIM smartcard",
	Long: `uiccscan v` + version + `

Traverses a UICC/SIM's hierarchical file system, recording the structural
metadata of every elementary file it can reach (type, structure, size,
record layout, status), and writes a replay script of every exchanged
APDU so the session can be reproduced on a card-personalization tool.`,
	Version: version,
	RunE:    runScan,
}

func init() {
	rootCmd.Flags().BoolVar(&flagListReaders, "readers", false, "list detected smart card readers and exit")
	rootCmd.Flags().IntVarP(&flagReaderIndex, "reader", "r", 0, "reader index to use")
	rootCmd.Flags().StringVar(&flagADM1, "adm1", "", "ADM1 administrative code (hex); presence enables the full verification script")
	rootCmd.Flags().StringVar(&flagADM2, "adm2", "", "ADM2 administrative code (hex)")
	rootCmd.Flags().StringVar(&flagADM3, "adm3", "", "ADM3 administrative code (hex)")
	rootCmd.Flags().StringVar(&flagADM4, "adm4", "", "ADM4 administrative code (hex)")
	rootCmd.Flags().StringVar(&flagCHV1, "chv1", "", "CHV1/global-PIN code (hex); presence enables CHV1 verification")
	rootCmd.Flags().StringVar(&flagCHV2, "chv2", "", "CHV2/local-PIN code (hex)")
	rootCmd.Flags().BoolVar(&flagContent3G, "content3g", false, "read EF content during the 3G pass instead of the 2G pass")
	rootCmd.Flags().StringVarP(&flagFileListIn, "input", "i", "", "external file-system XML, consulted when READ HEADER is unsupported")
	rootCmd.Flags().StringVarP(&flagOutputPath, "output", "o", "script.pcom", "replay-script output path")
}

// Execute runs the root command, exiting non-zero on failure (§6.1).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetVersion returns the CLI version string.
func GetVersion() string {
	return version
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if flagListReaders {
		return listReaders()
	}

	cfg := buildConfig()

	reader, err := card.Connect(flagReaderIndex)
	if err != nil {
		return fmt.Errorf("connecting to reader %d: %w", flagReaderIndex, err)
	}
	defer reader.Close()

	output.PrintReaderInfo(reader.Name(), reader.ATRHex())
	if atrInfo, err := card.DecodeATR(reader.ATR()); err == nil {
		logger.Debug("decoded ATR", "protocols", atrInfo.Protocols, "convention", atrInfo.Convention(), "voltage", atrInfo.Voltage)
	}

	sink, err := sim.NewReplayWriter(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	var fallback []string
	if cfg.FileSystemXMLPath != "" {
		fallback, err = scanconfig.LoadFileSystemXML(cfg.FileSystemXMLPath)
		if err != nil {
			return fmt.Errorf("loading file-system XML %q: %w", cfg.FileSystemXMLPath, err)
		}
	}

	scanner := &sim.Scanner{
		Reader:        reader,
		Sink:          sink,
		Logger:        logger,
		FallbackPaths: fallback,
	}

	records, err := scanner.Run(context.Background(), cfg)
	if err != nil {
		output.PrintError(err.Error())
		return err
	}

	output.PrintInventory(records)
	output.PrintSuccess(fmt.Sprintf("scan complete: %d files, replay script written to %s", len(records), cfg.OutputPath))
	return nil
}

// buildConfig assembles a sim.ScanConfig directly from CLI flags (§6.1),
// matching §6.2's module-mode field set so the orchestrator has exactly one
// configuration type regardless of invocation mode.
func buildConfig() sim.ScanConfig {
	return sim.ScanConfig{
		ReaderIndex:       flagReaderIndex,
		FullScript:        flagADM1 != "",
		UseADM2:           flagADM2 != "",
		UseADM3:           flagADM3 != "",
		UseADM4:           flagADM4 != "",
		CHV1Disabled:      flagCHV1 == "",
		ADM1:              flagADM1,
		ADM2:              flagADM2,
		ADM3:              flagADM3,
		ADM4:              flagADM4,
		CHV1:              flagCHV1,
		CHV2:              flagCHV2,
		ReadContent3G:     flagContent3G,
		FileSystemXMLPath: flagFileListIn,
		OutputPath:        flagOutputPath,
	}
}
