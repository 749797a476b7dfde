// Package classify wraps the external acuity oracle. Callers hand it a
// normalized vitals/symptom bundle and always get a usable ESI result back:
// any oracle failure (network, timeout, missing credential, malformed reply)
// resolves to a fixed fallback so intake can never be blocked by the oracle.
package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FallbackLevel is the acuity assigned when classification degrades.
	// Level 3 keeps the record orderable without pushing an unassessed
	// patient ahead of known emergencies.
	FallbackLevel = 3

	// FallbackExplanation marks a degraded classification so the dashboard
	// can flag the record for manual triage.
	FallbackExplanation = "Automatic triage unavailable; defaulted to ESI 3 pending nurse assessment."
)

// Result is the structured outcome of a classification call.
type Result struct {
	Level       int    `json:"level"`
	Explanation string `json:"explanation"`
	Degraded    bool   `json:"degraded"`
}

// Fallback returns the fixed degraded-classification result.
func Fallback() Result {
	return Result{Level: FallbackLevel, Explanation: FallbackExplanation, Degraded: true}
}

// Input is the canonical bundle handed to the oracle. Absent vitals are nil
// and are omitted from the prompt entirely; a zero would corrupt the
// classification.
type Input struct {
	Temperature     *float64
	Pulse           *int
	RespirationRate *int
	BloodPressure   string // canonical "S/D" or "N/A"
	Symptoms        string
	Images          []Image
}

// Image is a decoded image attachment for the oracle request.
type Image struct {
	MIMEType string
	Data     []byte
}

// Oracle is the external text-in/text-out classification capability.
type Oracle interface {
	Generate(ctx context.Context, prompt string, images []Image) (string, error)
}

// Classifier drives the oracle and enforces the failure policy. It is safe
// for concurrent use.
type Classifier struct {
	oracle  Oracle
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a Classifier. A nil oracle is allowed and behaves as a
// permanently degraded classifier (e.g. no API credential configured).
func New(oracle Oracle, timeout time.Duration, logger zerolog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Classifier{oracle: oracle, timeout: timeout, logger: logger}
}

// Classify invokes the oracle once, bounded by the configured timeout, and
// parses its reply. It never returns an error: every failure path resolves
// to Fallback().
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	if c.oracle == nil {
		c.logger.Warn().Msg("no classification oracle configured, using fallback acuity")
		return Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.oracle.Generate(ctx, BuildPrompt(in), in.Images)
	if err != nil {
		c.logger.Warn().Err(err).Msg("classification oracle call failed, using fallback acuity")
		return Fallback()
	}

	res, err := ParseReply(reply)
	if err != nil {
		c.logger.Warn().Err(err).Str("reply", reply).Msg("unparseable oracle reply, using fallback acuity")
		return Fallback()
	}
	return res
}

// BuildPrompt assembles the single natural-language request for the oracle.
// Fields the patient did not report are omitted rather than zero-filled.
func BuildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Categorize the following emergency department patient into a triage level using the Emergency Severity Index (ESI).\n")
	if in.Temperature != nil {
		fmt.Fprintf(&b, "Temperature: %.1f\n", *in.Temperature)
	}
	if in.Pulse != nil {
		fmt.Fprintf(&b, "Pulse: %d\n", *in.Pulse)
	}
	if in.RespirationRate != nil {
		fmt.Fprintf(&b, "Respiration rate: %d\n", *in.RespirationRate)
	}
	if in.BloodPressure != "" && in.BloodPressure != "N/A" {
		fmt.Fprintf(&b, "Blood pressure: %s\n", in.BloodPressure)
	}
	if in.Symptoms != "" {
		fmt.Fprintf(&b, "Symptoms: %s\n", in.Symptoms)
	}
	if len(in.Images) > 0 {
		fmt.Fprintf(&b, "Attached: %d image(s) of the presenting complaint.\n", len(in.Images))
	}
	b.WriteString(`Reply with exactly one line in the form "<ESI number> - <short explanation>".`)
	return b.String()
}

// ParseReply parses the oracle's contractual "<integer> - <explanation>"
// reply. The level is extracted digits-only from the left segment, which
// tolerates stray prefixes such as "Level: 4". Anything else is an error the
// caller converts to the fallback result.
func ParseReply(reply string) (Result, error) {
	parts := strings.SplitN(strings.TrimSpace(reply), " - ", 2)
	if len(parts) < 2 {
		return Result{}, fmt.Errorf("reply missing %q separator", " - ")
	}

	var digits strings.Builder
	for _, r := range parts[0] {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	switch digits.String() {
	case "1", "2", "3", "4", "5":
	default:
		return Result{}, fmt.Errorf("no valid ESI level in %q", parts[0])
	}

	return Result{
		Level:       int(digits.String()[0] - '0'),
		Explanation: strings.TrimSpace(parts[1]),
	}, nil
}

// DecodeImages converts base64 transport payloads into decoded image buffers.
// A payload that fails to decode is skipped and logged; one bad image must
// not abort the whole classification call.
func DecodeImages(encoded []string, logger zerolog.Logger) []Image {
	var images []Image
	for i, enc := range encoded {
		// Dashboard clients send data URLs ("data:image/png;base64,...");
		// strip the prefix when present.
		payload := enc
		declaredMIME := ""
		if strings.HasPrefix(enc, "data:") {
			if idx := strings.Index(enc, ";base64,"); idx > 5 {
				declaredMIME = enc[5:idx]
				payload = enc[idx+len(";base64,"):]
			}
		}

		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			logger.Warn().Err(err).Int("image", i).Msg("skipping undecodable intake image")
			continue
		}

		mime := declaredMIME
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		images = append(images, Image{MIMEType: mime, Data: data})
	}
	return images
}
