package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode one instance file and print it as JSON",
	Long: `Decodes the header and vendor-private block of a single instance and
applies the multi-echo check to it, printing the result as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// inspectOutput is the JSON shape printed by inspect.
type inspectOutput struct {
	Path        string                 `json:"path"`
	PatientName *domain.NameComponents `json:"patient_name,omitempty"`
	Header      any                    `json:"header"`
	Private     map[string]any         `json:"private"`
	IsMosaic    bool                   `json:"is_mosaic"`
	MultiEcho   bool                   `json:"multi_echo"`
	Echoes      int                    `json:"echoes,omitempty"`
	Reason      string                 `json:"reason"`
}

// patientName splits the patient name of ds into its components.
func patientName(ds domain.Dataset) *domain.NameComponents {
	v, ok := domain.Lookup(ds, domain.TagPatientName, 0)
	if !ok {
		return nil
	}
	pn, ok := v.(domain.PersonName)
	if !ok {
		return nil
	}
	c, ok := pn.Components()
	if !ok {
		return nil
	}
	return &c
}

func runInspect(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(nil)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(*settings)
	if err != nil {
		return err
	}
	if pipeline.Inspector == nil {
		return errors.New("inspect service not configured")
	}

	res, err := pipeline.Inspector.Inspect(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}

	out := inspectOutput{
		Path:      res.Path,
		MultiEcho: res.Echo.Flagged,
		Echoes:    res.Echo.EchoCount,
		Reason:    res.Echo.Reason,
	}
	if res.Header != nil {
		out.Header = res.Header.Dataset
		out.PatientName = patientName(res.Header.Dataset)
		out.Private = res.Header.Private.Data
		out.IsMosaic = res.Header.Private.IsMosaic
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
