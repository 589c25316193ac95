// Package knowledge holds the static reference data of the support bot:
// topic answers, the FAQ, the keyword fallback table and the instructions
// handed to the generation service. The data lives in YAML so operators can
// edit it without rebuilding; a default copy is embedded in the binary.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// FAQ ids the bot renders on their own.
const (
	FAQSchedule = "schedule"
	FAQQuality  = "quality"
)

// FAQEntry is one question with its answer. ID is a stable key used by the bot.
type FAQEntry struct {
	ID       string `yaml:"id"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Rule maps a set of trigger keywords to a canned answer.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// Fallback is the ordered keyword table used when generation is unavailable.
type Fallback struct {
	Rules    []Rule `yaml:"rules"`
	Greeting string `yaml:"greeting"`
}

// ContactKeys point at the topic entries that hold contact details.
type ContactKeys struct {
	Topic string `yaml:"topic"`
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`
	Site  string `yaml:"site"`
}

// Prompt is the instruction preamble for the generation service.
type Prompt struct {
	Preamble string   `yaml:"preamble"`
	Rules    []string `yaml:"rules"`
}

// Base is the loaded knowledge file. It is not modified after Load.
type Base struct {
	Topics   map[string]map[string]string `yaml:"topics"`
	Contacts ContactKeys                  `yaml:"contacts"`
	FAQ      []FAQEntry                   `yaml:"faq"`
	Fallback Fallback                     `yaml:"fallback"`
	Prompt   Prompt                       `yaml:"prompt"`
}

// Contacts is the resolved contact block.
type Contacts struct {
	Phone string
	Email string
	Site  string
}

// Default returns the embedded knowledge base.
func Default() (*Base, error) {
	return Parse(defaultYAML)
}

// Load reads the knowledge base from path, or the embedded default when path is empty.
func Load(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	base, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base, nil
}

// Parse decodes and validates a knowledge document. Fallback keywords are
// lower-cased. The FAQ entries and contacts the bot renders must be present.
func Parse(raw []byte) (*Base, error) {
	var base Base
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("decode knowledge: %w", err)
	}
	if err := base.normalize(); err != nil {
		return nil, err
	}
	return &base, nil
}

func (b *Base) normalize() error {
	if strings.TrimSpace(b.Fallback.Greeting) == "" {
		return fmt.Errorf("fallback greeting is empty")
	}
	for i := range b.Fallback.Rules {
		rule := &b.Fallback.Rules[i]
		if strings.TrimSpace(rule.Answer) == "" {
			return fmt.Errorf("fallback rule %q has no answer", rule.Name)
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return fmt.Errorf("fallback rule %q has no keywords", rule.Name)
		}
		rule.Keywords = keywords
	}
	seen := make(map[string]struct{}, len(b.FAQ))
	for _, entry := range b.FAQ {
		if entry.ID == "" {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("duplicate faq id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	for _, id := range []string{FAQSchedule, FAQQuality} {
		if answer, ok := b.FAQAnswer(id); !ok || strings.TrimSpace(answer) == "" {
			return fmt.Errorf("faq entry %q is missing or empty", id)
		}
	}
	c := b.ContactDetails()
	if c.Phone == "" || c.Email == "" || c.Site == "" {
		return fmt.Errorf("contacts do not resolve to phone, email and site in topic %q", b.Contacts.Topic)
	}
	return nil
}

// Lookup returns the answer stored under topic/key, or "" when absent.
func (b *Base) Lookup(topic, key string) string {
	return b.Topics[topic][key]
}

// FAQAnswer returns the answer of the FAQ entry with the given id.
func (b *Base) FAQAnswer(id string) (string, bool) {
	for _, entry := range b.FAQ {
		if entry.ID == id {
			return entry.Answer, true
		}
	}
	return "", false
}

// ContactDetails resolves the contact keys against the topics.
func (b *Base) ContactDetails() Contacts {
	return Contacts{
		Phone: b.Lookup(b.Contacts.Topic, b.Contacts.Phone),
		Email: b.Lookup(b.Contacts.Topic, b.Contacts.Email),
		Site:  b.Lookup(b.Contacts.Topic, b.Contacts.Site),
	}
}
