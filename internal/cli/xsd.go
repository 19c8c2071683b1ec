package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apim-schema-import/internal/app"
	"apim-schema-import/internal/core"
)

type xsdOptions struct {
	InputDir       string
	OutputDir      string
	BaseDir        string
	SchemaPath     string
	ManifestFormat string
	ManifestName   string
}

func newXSDCommand() *cobra.Command {
	opts := xsdOptions{}
	cmd := &cobra.Command{
		Use:   "xsd",
		Short: "Resolve a directory of schemas into an ordered upload plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runXSD(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.InputDir, "input-dir", "", "Directory holding the root schemas")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Empty directory for artifacts (relative to input-dir)")
	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "", "Directory for resolving relative references")
	cmd.Flags().StringVar(&opts.SchemaPath, "schema-path", core.DefaultSchemaPath, "Path prefix written into rewritten schemaLocations")
	cmd.Flags().StringVar(&opts.ManifestFormat, "manifest-format", "json", "Manifest format (json, yaml, toml)")
	cmd.Flags().StringVar(&opts.ManifestName, "manifest-name", "", "Manifest file name (default upload-plan.<format>)")
	_ = viper.BindPFlag("xsd.input_dir", cmd.Flags().Lookup("input-dir"))
	_ = viper.BindPFlag("xsd.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("base_dir", cmd.Flags().Lookup("base-dir"))
	_ = viper.BindPFlag("xsd.schema_path", cmd.Flags().Lookup("schema-path"))
	_ = viper.BindPFlag("xsd.manifest_format", cmd.Flags().Lookup("manifest-format"))
	_ = viper.BindPFlag("xsd.manifest_name", cmd.Flags().Lookup("manifest-name"))
	return cmd
}

func runXSD(ctx context.Context, cmd *cobra.Command, opts xsdOptions) error {
	service := newAppService()
	result, err := service.PlanSchemas(ctx, app.SchemaPlanRequest{
		InputDir:       resolveString(cmd, opts.InputDir, "xsd.input_dir", "input-dir"),
		OutputDir:      resolveString(cmd, opts.OutputDir, "xsd.output_dir", "output-dir"),
		BaseDir:        resolveString(cmd, opts.BaseDir, "base_dir", "base-dir"),
		SchemaPath:     resolveString(cmd, opts.SchemaPath, "xsd.schema_path", "schema-path"),
		ManifestFormat: resolveString(cmd, opts.ManifestFormat, "xsd.manifest_format", "manifest-format"),
		ManifestName:   resolveString(cmd, opts.ManifestName, "xsd.manifest_name", "manifest-name"),
	})
	if err != nil {
		return err
	}
	for _, artifact := range result.Artifacts {
		fmt.Printf("%d %s <- %s\n", artifact.Rank, artifact.Name, artifact.Source)
	}
	fmt.Printf("wrote manifest: %s\n", result.ManifestPath)
	return nil
}
