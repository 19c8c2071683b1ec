package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apim-schema-import/internal/app"
)

type wsdlOptions struct {
	Input      string
	Output     string
	BaseDir    string
	PrefixStem string
}

func newWSDLCommand() *cobra.Command {
	opts := wsdlOptions{}
	cmd := &cobra.Command{
		Use:   "wsdl",
		Short: "Consolidate a WSDL and everything it references into one document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWSDL(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Input, "input", "", "WSDL file path or URL")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output path (default <input>-WSDLProcessed.wsdl)")
	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "", "Directory for resolving relative references")
	cmd.Flags().StringVar(&opts.PrefixStem, "prefix-stem", "", "Stem for minted namespace prefixes")
	_ = viper.BindPFlag("wsdl.input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("wsdl.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("base_dir", cmd.Flags().Lookup("base-dir"))
	_ = viper.BindPFlag("prefix_stem", cmd.Flags().Lookup("prefix-stem"))
	return cmd
}

func runWSDL(ctx context.Context, cmd *cobra.Command, opts wsdlOptions) error {
	service := newAppService()
	result, err := service.ConsolidateWSDL(ctx, app.WSDLRequest{
		Input:      resolveString(cmd, opts.Input, "wsdl.input", "input"),
		Output:     resolveString(cmd, opts.Output, "wsdl.output", "output"),
		BaseDir:    resolveString(cmd, opts.BaseDir, "base_dir", "base-dir"),
		PrefixStem: resolveString(cmd, opts.PrefixStem, "prefix_stem", "prefix-stem"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("wrote wsdl: %s\n", result.Output)
	return nil
}
