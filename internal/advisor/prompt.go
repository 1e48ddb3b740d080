package advisor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
)

// BuildPrompt assembles the generation prompt from the raw ledger text and
// the live device states. The model is asked for bulleted advice using the
// same emphasis markers the markup package parses.
func BuildPrompt(rawLedger string, devices []tracker.DeviceState) string {
	var b strings.Builder
	b.WriteString("Analyze the following device power usage log and current device states.\n")
	b.WriteString("Provide 3-5 concise, actionable, bulleted recommendations to save energy. ")
	b.WriteString("Use **bold**, *italics*, or __underline__ formatting to highlight key terms or actions.\n\n")
	b.WriteString("Log Data:\n")
	b.WriteString(rawLedger)
	b.WriteString("\n\nCurrent Device States:\n")

	lines := make([]string, 0, len(devices))
	for _, d := range devices {
		status := "OFF"
		if d.On {
			status = "ON"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s, Power: %sW, Total Usage: %.3f units",
			d.Name, status, strconv.FormatFloat(d.PowerWatts, 'f', -1, 64), d.TotalUnits))
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}
