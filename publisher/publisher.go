// Package publisher turns a finished playbook into a self-contained HTML
// brief for the outreach collaborator.
package publisher

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"profile_teardown/model"
)

// Publisher writes playbook briefs. Local images are inlined as data URIs so
// the brief survives being attached to a message.
type Publisher struct {
	subject string
	logger  *zap.Logger
}

// New creates a Publisher. subject names the person in the brief title and
// may be empty.
func New(subject string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{subject: subject, logger: logger}
}

// WriteBrief converts the playbook to markdown, renders it and writes the
// HTML document to outPath.
func (p *Publisher) WriteBrief(key model.ContentKey, pb model.Playbook, imagePath, outPath string) error {
	var ref string
	if imagePath != "" {
		var err error
		if ref, err = inlineImage(imagePath, filepath.Dir(outPath)); err != nil {
			return err
		}
		p.logger.Debug("inlined brief image", zap.String("key", string(key)), zap.String("image", imagePath))
	}
	md := BriefMarkdown(key, pb, ref)

	body, err := mdToHTML(md)
	if err != nil {
		return fmt.Errorf("render brief %s: %w", key, err)
	}
	body = normalizeForEmail(body)

	doc := p.document(key, pb, body)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create brief dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write brief %s: %w", outPath, err)
	}
	p.logger.Info("brief written", zap.String("key", string(key)), zap.String("path", outPath))
	return nil
}

func (p *Publisher) document(key model.ContentKey, pb model.Playbook, body string) string {
	title := fmt.Sprintf("Teardown: %s", key)
	if p.subject != "" {
		title = fmt.Sprintf("Teardown: %s (%s)", p.subject, key)
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<meta name=\"description\" content=\"%s\">\n", html.EscapeString(digest(pb.EditorialVerdict, 120)))
	b.WriteString("</head>\n<body style=\"font-family:Georgia,serif;max-width:640px;margin:0 auto;color:#222;\">\n")
	b.WriteString(body)
	b.WriteString("</body></html>\n")
	return b.String()
}

// BriefMarkdown lays the playbook out as markdown with the annotated image
// at the top. imageRef is the only image reference in the result: playbook
// text is model output and is escaped so it renders as plain text. Empty
// rewrites are left out.
func BriefMarkdown(key model.ContentKey, pb model.Playbook, imageRef string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Editorial teardown: %s\n\n", key)
	if imageRef != "" {
		fmt.Fprintf(&b, "![Annotated %s](%s)\n\n", key, imageRef)
	}
	fmt.Fprintf(&b, "> %s\n\n", escapeMarkdown(pb.EditorialVerdict))

	b.WriteString("## Why this fails\n\n")
	for _, w := range pb.WhyItFails {
		fmt.Fprintf(&b, "- %s\n", escapeMarkdown(w))
	}
	b.WriteString("\n## The fix\n\n")
	fmt.Fprintf(&b, "%s\n\n", escapeMarkdown(pb.TheFix))

	rewrites := []struct {
		label string
		r     model.Rewrite
	}{
		{"Headline", pb.BeforeAfter.Headline},
		{"Key section", pb.BeforeAfter.Paragraph},
	}
	wrote := false
	for _, rw := range rewrites {
		if rw.r.Before == "" {
			continue
		}
		if !wrote {
			b.WriteString("## Before and after\n\n")
			wrote = true
		}
		fmt.Fprintf(&b, "### %s\n\n1. Before: *%s*\n2. After: **%s**\n\n", rw.label, escapeMarkdown(rw.r.Before), escapeMarkdown(rw.r.After))
	}

	b.WriteString("## Reusable principle\n\n")
	fmt.Fprintf(&b, "%s\n", escapeMarkdown(pb.ReusablePrinciple))
	return b.String()
}

// mdEscaper backslash-escapes the punctuation that opens images, links,
// emphasis, code, raw HTML and block markers.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`(`, `\(`, `)`, `\)`, `!`, `\!`, `<`, `\<`, `>`, `\>`, `#`, `\#`,
	`|`, `\|`, `~`, `\~`, `-`, `\-`, `+`, `\+`,
)

// escapeMarkdown collapses s to one line and escapes it.
func escapeMarkdown(s string) string {
	return mdEscaper.Replace(strings.Join(strings.Fields(s), " "))
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	olRe = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	hRe  = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
)

// Mail clients restyle lists and headings unpredictably, so lists become
// numbered or bulleted paragraphs and headings become sized paragraphs.
func flattenLists(s string) string {
	s = olRe.ReplaceAllStringFunc(s, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>", i+1, strings.TrimSpace(item[1]))
		}
		return b.String()
	})

	return ulRe.ReplaceAllStringFunc(s, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			b.WriteString("<p>• ")
			b.WriteString(strings.TrimSpace(item[1]))
			b.WriteString("</p>")
		}
		return b.String()
	})
}

func convertHeadings(s string) string {
	sizes := map[string]string{
		"1": "24px",
		"2": "20px",
		"3": "17px",
		"4": "16px",
		"5": "15px",
		"6": "14px",
	}
	return hRe.ReplaceAllStringFunc(s, func(block string) string {
		parts := hRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := sizes[parts[1]]
		if size == "" {
			size = "16px"
		}
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, strings.TrimSpace(parts[2]))
	})
}

func normalizeForEmail(s string) string {
	s = convertHeadings(s)
	s = flattenLists(s)
	return s
}

// inlineImage turns the annotated image into a base64 data URI. Remote and
// data URIs are returned as is; a relative path resolves against baseDir
// when it does not exist as given.
func inlineImage(ref, baseDir string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	local := ref
	if !filepath.IsAbs(local) {
		if _, err := os.Stat(local); err != nil {
			local = filepath.Join(baseDir, ref)
		}
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return "", fmt.Errorf("inline image %s: %w", ref, err)
	}
	return fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(data), base64.StdEncoding.EncodeToString(data)), nil
}

func digest(s string, limit int) string {
	joined := strings.Join(strings.Fields(s), " ")
	r := []rune(joined)
	if len(r) <= limit {
		return joined
	}
	return string(r[:limit])
}
