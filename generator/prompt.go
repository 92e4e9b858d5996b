package generator

import (
	"fmt"
	"strings"

	"profile_teardown/model"
)

// Task names which stage issued a prompt. Mocks route on it.
type Task string

const (
	TaskBounds     Task = "bounds"
	TaskTranscribe Task = "transcribe"
	TaskDiagnose   Task = "diagnose"
	TaskSelect     Task = "select"
	TaskPlaybook   Task = "playbook"
)

// Prompt is the message set sent to the model.
type Prompt struct {
	Task    Task
	System  string
	User    string
	History []Message
	Images  []Image

	// Temperature is nil for the provider default.
	Temperature *float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

// Message is an optional prior turn.
type Message struct {
	Role    string
	Content string
}

func Temp(v float64) *float64 { return &v }

const editorSystem = "You are a brutally honest editorial reviewer. No pleasantries. No hedging. Just truth."

func audience(ct model.ContentType) (what, stranger string) {
	if ct == model.ContentPost {
		return "a LinkedIn post", "someone scrolling their feed who has 2 seconds to decide if this is worth their time"
	}
	return "a LinkedIn profile", "a recruiter, potential client, or industry peer seeing this for the first time"
}

// BuildBoundsPrompt asks a vision model for the main content column.
func BuildBoundsPrompt(img Image, width, height int, ct model.ContentType) Prompt {
	var region string
	if ct == model.ContentPost {
		region = "the main LinkedIn post: author info, post text, post media and the engagement bar. " +
			"Exclude both sidebars, the top navigation bar, promotional sections, other posts and the comments."
	} else {
		region = "the main LinkedIn profile card: photo, name, headline, About, Experience and Education. " +
			"Exclude both sidebars, the top navigation bar, the footer and any promotional content."
	}
	var sb strings.Builder
	sb.WriteString("Identify the exact pixel boundaries of ")
	sb.WriteString(region)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Image dimensions: %dpx wide x %dpx tall.\n", width, height)
	sb.WriteString(`Return ONLY JSON: {"x1": <left>, "y1": <top>, "x2": <right>, "y2": <bottom>}`)
	return Prompt{
		Task:      TaskBounds,
		User:      sb.String(),
		Images:    []Image{img},
		MaxTokens: 200,
		JSON:      true,
	}
}

// BuildTranscribePrompt asks a vision model for every visible line of text.
func BuildTranscribePrompt(img Image) Prompt {
	return Prompt{
		Task: TaskTranscribe,
		User: "Extract ALL visible text from this LinkedIn screenshot.\n" +
			"Return the text exactly as it appears, preserving structure:\n" +
			"- Separate sections with blank lines\n" +
			"- Preserve hierarchy (headings vs body text)\n" +
			"- Include names, titles, descriptions, dates and numbers\n" +
			"Return ONLY the extracted text, nothing else.",
		Images:    []Image{img},
		MaxTokens: 2000,
	}
}

// BuildDiagnosisPrompt builds the text-only verdict request.
func BuildDiagnosisPrompt(transcript string, ct model.ContentType, context string, banned []string) Prompt {
	what, stranger := audience(ct)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Diagnose why %s fails to connect.\n\nExtracted text:\n---\n%s\n---\n\n", what, transcript)
	if context != "" {
		fmt.Fprintf(&sb, "Additional context: %s\n\n", context)
	}
	sb.WriteString("Your task:\n")
	sb.WriteString("1. Identify what STORY this content is trying to tell\n")
	fmt.Fprintf(&sb, "2. Identify what SIGNAL it actually sends to %s\n", stranger)
	sb.WriteString("3. Find the SINGLE BIGGEST GAP between intent and perception\n")
	sb.WriteString("4. Name the REAL COST of this gap (what does the user lose?)\n")
	sb.WriteString("5. Deliver a ONE SENTENCE VERDICT that stings a little\n\n")
	sb.WriteString("RULES:\n")
	sb.WriteString("- ONE core gap only.\n")
	sb.WriteString("- No advice, no tips. Just diagnosis.\n")
	sb.WriteString("- Use specific details from the content.\n")
	sb.WriteString("- The consequence must use words like miss, lose, skip, ignore or scroll.\n")
	sb.WriteString("- The verdict is under 20 words and never opens with maybe, perhaps or it seems.\n")
	if len(banned) > 0 {
		fmt.Fprintf(&sb, "- Never use: %s\n", quoteList(banned))
	}
	sb.WriteString("\nReturn ONLY JSON with keys primary_story, actual_signal, core_gap, consequence, one_sentence_verdict.\n")
	sb.WriteString("Tone reference: \"This reads like a resume, not a person worth following.\" \"All credentials, zero personality.\"")
	return Prompt{
		Task:        TaskDiagnose,
		System:      editorSystem,
		User:        sb.String(),
		Temperature: Temp(0.7),
		MaxTokens:   500,
		JSON:        true,
	}
}

// BuildSelectionPrompt asks which numbered OCR phrases prove the verdict.
func BuildSelectionPrompt(verdict, coreGap string, candidates []model.TextGroup, maxResults int) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "VERDICT: %q\nCORE GAP: %s\n\n", verdict, coreGap)
	sb.WriteString("Text elements found in the image (with vertical position):\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %q (y=%d)\n", i+1, c.Text, c.Box.Y1)
	}
	fmt.Fprintf(&sb, "\nSelect at most %d elements that BEST PROVE the verdict: headlines, key phrases or sections that show why it is correct.\n", maxResults)
	sb.WriteString(`Return ONLY JSON: {"selected": [1, 5]} using the numbers above.`)
	return Prompt{
		Task:        TaskSelect,
		System:      "You select text elements that prove editorial verdicts. Return only JSON.",
		User:        sb.String(),
		Temperature: Temp(0),
		MaxTokens:   100,
		JSON:        true,
	}
}

// PlaybookInput carries what the playbook prompt needs.
type PlaybookInput struct {
	ContentType model.ContentType
	Verdict     model.Verdict
	Captions    []string
	// TranscriptLimit bounds the transcript excerpt in runes.
	TranscriptLimit int
}

// BuildPlaybookPrompt builds the structured playbook request.
func BuildPlaybookPrompt(in PlaybookInput, banned []string) Prompt {
	v := in.Verdict
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are writing an editorial playbook for a LinkedIn %s.\n\n", in.ContentType)
	fmt.Fprintf(&sb, "LOCKED VERDICT: %q\n\n", v.OneSentenceVerdict)
	sb.WriteString("DIAGNOSIS:\n")
	fmt.Fprintf(&sb, "- What they're trying to say: %s\n", v.PrimaryStory)
	fmt.Fprintf(&sb, "- What it actually signals: %s\n", v.ActualSignal)
	fmt.Fprintf(&sb, "- Core gap: %s\n", v.CoreGap)
	fmt.Fprintf(&sb, "- Consequence: %s\n\n", v.Consequence)
	if len(in.Captions) > 0 {
		sb.WriteString("EVIDENCE MARKERS:\n")
		for _, c := range in.Captions {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "ORIGINAL CONTENT (for rewrites):\n---\n%s\n---\n\n", truncateRunes(v.OCRText, in.TranscriptLimit))
	sb.WriteString("Sections:\n")
	sb.WriteString("- editorial_verdict: copy the locked verdict exactly\n")
	sb.WriteString("- why_it_fails: exactly 3 bullets, one blunt sentence each, specific to this content\n")
	sb.WriteString("- the_fix: ONE direction, formatted \"Shift from [current state] to [desired state].\"\n")
	sb.WriteString("- before_after: headline and paragraph rewrites; each before is verbatim text from the original\n")
	sb.WriteString("- reusable_principle: \"If someone [action], they should feel [outcome].\"\n")
	if len(banned) > 0 {
		fmt.Fprintf(&sb, "Never use: %s\n", quoteList(banned))
	}
	sb.WriteString(`Return ONLY JSON: {"editorial_verdict": "...", "why_it_fails": ["", "", ""], "the_fix": "...", ` +
		`"before_after": {"headline": {"before": "", "after": ""}, "paragraph": {"before": "", "after": ""}}, "reusable_principle": "..."}`)
	return Prompt{
		Task:        TaskPlaybook,
		System:      "You are a senior editor who gives blunt, actionable feedback. No hedging. No pleasantries.",
		User:        sb.String(),
		Temperature: Temp(0.6),
		MaxTokens:   1500,
		JSON:        true,
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
