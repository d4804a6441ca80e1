package rubric

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// DomainContent prefixes the content hash. The version suffix allows a
// future change of the rendering without colliding with old hashes.
const DomainContent = "rubric/content/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash identifies the editable content of a rubric: title, default
// flag and blocks. Ids and timestamps are excluded, so two saves of the same
// content hash identically. Text is NFC normalized first.
func ContentHash(r Rubric) (string, error) {
	c := Rubric{
		RubricTitle:  norm.NFC.String(r.RubricTitle),
		IsOrgDefault: r.IsOrgDefault,
		Headings:     make([]Heading, len(r.Headings)),
		TextBlocks:   make([]TextBlock, len(r.TextBlocks)),
		Prompts:      make([]Prompt, len(r.Prompts)),
	}
	for i, h := range r.Headings {
		h.Text = norm.NFC.String(h.Text)
		c.Headings[i] = h
	}
	for i, t := range r.TextBlocks {
		t.Text = norm.NFC.String(t.Text)
		c.TextBlocks[i] = t
	}
	for i, p := range r.Prompts {
		p.PromptText = norm.NFC.String(p.PromptText)
		opts := make([]DropdownOption, len(p.PromptOptions))
		for j, o := range p.PromptOptions {
			opts[j] = DropdownOption{
				Key:   norm.NFC.String(o.Key),
				Text:  norm.NFC.String(o.Text),
				Value: norm.NFC.String(o.Value),
			}
		}
		p.PromptOptions = opts
		c.Prompts[i] = p
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(DomainContent, bytes.TrimSpace(buf.Bytes())), nil
}
