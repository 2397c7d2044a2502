package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/continuity/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [text]",
		Short: "Record a journal entry or derived record",
		Long: `Record a journal entry. Text can be a positional arg or piped via stdin.

With --type the text becomes a claim, decision description, will-event action
or emotion name instead.`,
		Run: runPut,
	}

	cmd.Flags().String("type", "memory", "Record type: memory, claim, decision, emotion, will")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("people", "", "Comma-separated people (memory)")
	cmd.Flags().String("at", "", "Timestamp, RFC3339 or YYYY-MM-DD (default: now)")
	cmd.Flags().String("kind", "belief", "Claim kind: identity, goal, belief, fact")
	cmd.Flags().String("subject", "", "Claim subject")
	cmd.Flags().Float64("polarity", 0, "Claim or emotion polarity in [-1,1]")
	cmd.Flags().Float64("confidence", 0.8, "Claim confidence in [0,1]")
	cmd.Flags().Float64("intensity", 0.5, "Emotion intensity in [0,1]")
	cmd.Flags().String("rationale", "", "Decision or will-event rationale")
	cmd.Flags().String("outcome", "", "Decision outcome")
	cmd.Flags().String("situation", "", "Will-event situation")
	cmd.Flags().String("source", "", "Source memory id (claim, emotion)")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	recordType, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	peopleStr, _ := cmd.Flags().GetString("people")
	at, _ := cmd.Flags().GetString("at")

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		exitErr("put", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	ts, err := parseTime(at)
	if err != nil {
		exitErr("put", err)
	}
	user := getUser()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	f := cmd.Flags()
	var out any
	switch recordType {
	case "memory":
		out, err = s.PutMemory(ctx, model.MemoryEvent{
			UserID: user, Text: text, Timestamp: ts,
			Tags: splitList(tagsStr), People: splitList(peopleStr),
		})
	case "claim":
		kind, _ := f.GetString("kind")
		subject, _ := f.GetString("subject")
		polarity, _ := f.GetFloat64("polarity")
		confidence, _ := f.GetFloat64("confidence")
		source, _ := f.GetString("source")
		out, err = s.PutClaim(ctx, model.Claim{
			UserID: user, Kind: kind, Subject: subject, Text: text,
			Polarity: polarity, Confidence: confidence,
			Tags: splitList(tagsStr), SourceID: source, Timestamp: ts,
		})
	case "decision":
		rationale, _ := f.GetString("rationale")
		outcome, _ := f.GetString("outcome")
		out, err = s.PutDecision(ctx, model.Decision{
			UserID: user, Description: text, Rationale: rationale, Outcome: outcome,
			Tags: splitList(tagsStr), Timestamp: ts,
		})
	case "emotion":
		polarity, _ := f.GetFloat64("polarity")
		intensity, _ := f.GetFloat64("intensity")
		source, _ := f.GetString("source")
		out, err = s.PutEmotion(ctx, model.EmotionEvent{
			UserID: user, Emotion: text, Polarity: polarity, Intensity: intensity,
			SourceID: source, Timestamp: ts,
		})
	case "will":
		situation, _ := f.GetString("situation")
		rationale, _ := f.GetString("rationale")
		out, err = s.PutWillEvent(ctx, model.WillEvent{
			UserID: user, Situation: situation, Action: text, Rationale: rationale, Timestamp: ts,
		})
	default:
		err = fmt.Errorf("unknown record type %q (valid: memory, claim, decision, emotion, will)", recordType)
	}
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
