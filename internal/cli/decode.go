package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"riso-reel/internal/metadata"
)

func newDecodeCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "decode TEXT",
		Short:       "Decode a sheet marker payload",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := metadata.Parse(strings.TrimSpace(args[0]))
			if !ok {
				return errors.New("payload is not valid sheet metadata")
			}
			out := cmd.OutOrStdout()
			if asJSON {
				text, err := metadata.EncodeJSON(m)
				if err != nil {
					return err
				}
				printf(out, "%s\n", text)
				return nil
			}
			printf(out, "%s\n", renderFields(metadataFields(m)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func metadataFields(m metadata.SheetMetadata) [][2]string {
	fields := [][2]string{
		{"Page", fmt.Sprintf("%d of %d", m.PageNumber, m.TotalPages)},
		{"Grid", fmt.Sprintf("%d rows x %d cols", m.Rows, m.Cols)},
		{"Frames", fmt.Sprintf("%d from #%d", m.FrameCount, m.FrameStart)},
	}
	if m.CellWidth != nil && m.CellHeight != nil {
		fields = append(fields, [2]string{"Cell", fmt.Sprintf("%dx%d", *m.CellWidth, *m.CellHeight)})
	}
	if m.Margin != nil && m.Spacing != nil {
		fields = append(fields, [2]string{"Margin / spacing", fmt.Sprintf("%d / %d", *m.Margin, *m.Spacing)})
	}
	if m.FPS != nil {
		fields = append(fields, [2]string{"FPS", strconv.FormatFloat(*m.FPS, 'f', -1, 64)})
	}
	if m.VideoHash != nil {
		fields = append(fields, [2]string{"Video hash", *m.VideoHash})
	}
	if m.OriginalResolution != nil {
		fields = append(fields, [2]string{"Original size", fmt.Sprintf("%dx%d", m.OriginalResolution.Width(), m.OriginalResolution.Height())})
	}
	return fields
}
