package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Collection editor protocol, shared by every list-valued field:
//
//   - Add trims its string inputs and silently no-ops when a required input
//     is empty; new entries always go to the tail.
//   - Remove takes a positional index and tolerates indexes that no longer
//     exist (single-threaded editor, but a stale click must not panic).
//   - Update matches by stable ID, never by index, and shallow-merges only
//     the provided fields.
//
// All operations use value receivers and return the updated section, leaving
// every sibling field untouched.

func appendTrimmed(list []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return list
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, value)
}

func removeAt[T any](list []T, index int) []T {
	if index < 0 || index >= len(list) {
		return list
	}
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

// AddGreeting appends a greeting line.
func (b BrandTone) AddGreeting(value string) BrandTone {
	b.Greetings = appendTrimmed(b.Greetings, value)
	return b
}

// RemoveGreeting removes the greeting at index.
func (b BrandTone) RemoveGreeting(index int) BrandTone {
	b.Greetings = removeAt(b.Greetings, index)
	return b
}

// AddPhrasingExample appends a phrasing example.
func (b BrandTone) AddPhrasingExample(value string) BrandTone {
	b.PhrasingExamples = appendTrimmed(b.PhrasingExamples, value)
	return b
}

// RemovePhrasingExample removes the phrasing example at index.
func (b BrandTone) RemovePhrasingExample(index int) BrandTone {
	b.PhrasingExamples = removeAt(b.PhrasingExamples, index)
	return b
}

// AddWordToAvoid appends a word to the avoid list.
func (b BrandTone) AddWordToAvoid(value string) BrandTone {
	b.WordsToAvoid = appendTrimmed(b.WordsToAvoid, value)
	return b
}

// RemoveWordToAvoid removes the avoid-list entry at index.
func (b BrandTone) RemoveWordToAvoid(index int) BrandTone {
	b.WordsToAvoid = removeAt(b.WordsToAvoid, index)
	return b
}

// AddQAPair appends a question/answer pair. Both sides are required.
func (t AITraining) AddQAPair(question, answer string) AITraining {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return t
	}
	t.QAPairs = append(append([]QAPair{}, t.QAPairs...), QAPair{
		ID:       uuid.NewString(),
		Question: question,
		Answer:   answer,
	})
	return t
}

// RemoveQAPair removes the pair at index.
func (t AITraining) RemoveQAPair(index int) AITraining {
	t.QAPairs = removeAt(t.QAPairs, index)
	return t
}

// AddDocument appends a named training document.
func (t AITraining) AddDocument(name, content string) AITraining {
	name = strings.TrimSpace(name)
	content = strings.TrimSpace(content)
	if name == "" || content == "" {
		return t
	}
	t.Documents = append(append([]TrainingDocument{}, t.Documents...), TrainingDocument{
		ID:      uuid.NewString(),
		Name:    name,
		Content: content,
	})
	return t
}

// RemoveDocument removes the document at index.
func (t AITraining) RemoveDocument(index int) AITraining {
	t.Documents = removeAt(t.Documents, index)
	return t
}

// AddChatExample appends a customer-message/response example.
func (t AITraining) AddChatExample(customerMessage, response string) AITraining {
	customerMessage = strings.TrimSpace(customerMessage)
	response = strings.TrimSpace(response)
	if customerMessage == "" || response == "" {
		return t
	}
	t.ChatExamples = append(append([]ChatExample{}, t.ChatExamples...), ChatExample{
		ID:              uuid.NewString(),
		CustomerMessage: customerMessage,
		Response:        response,
	})
	return t
}

// RemoveChatExample removes the chat example at index.
func (t AITraining) RemoveChatExample(index int) AITraining {
	t.ChatExamples = removeAt(t.ChatExamples, index)
	return t
}

// AddTrigger appends a contextual trigger pair.
func (c ContextConfig) AddTrigger(trigger, context string) ContextConfig {
	trigger = strings.TrimSpace(trigger)
	context = strings.TrimSpace(context)
	if trigger == "" || context == "" {
		return c
	}
	c.Triggers = append(append([]ContextTrigger{}, c.Triggers...), ContextTrigger{
		Trigger: trigger,
		Context: context,
	})
	return c
}

// RemoveTrigger removes the trigger at index.
func (c ContextConfig) RemoveTrigger(index int) ContextConfig {
	c.Triggers = removeAt(c.Triggers, index)
	return c
}

// AddKnowledgeEntry appends a categorized knowledge-base entry.
func (c ContextConfig) AddKnowledgeEntry(category, content string) ContextConfig {
	category = strings.TrimSpace(category)
	content = strings.TrimSpace(content)
	if category == "" || content == "" {
		return c
	}
	c.Knowledge = append(append([]KnowledgeEntry{}, c.Knowledge...), KnowledgeEntry{
		Category: category,
		Content:  content,
	})
	return c
}

// RemoveKnowledgeEntry removes the knowledge entry at index.
func (c ContextConfig) RemoveKnowledgeEntry(index int) ContextConfig {
	c.Knowledge = removeAt(c.Knowledge, index)
	return c
}

// AddIntentExample appends an example utterance to the group with the given
// intent name, creating the group when it does not exist yet. Intent names
// are unique: adding to an existing name never creates a second group.
func (c ContextConfig) AddIntentExample(intent, example string) ContextConfig {
	intent = strings.TrimSpace(intent)
	example = strings.TrimSpace(example)
	if intent == "" || example == "" {
		return c
	}
	groups := make([]IntentGroup, len(c.Intents))
	copy(groups, c.Intents)
	for i, g := range groups {
		if g.Intent == intent {
			examples := append(append([]string{}, g.Examples...), example)
			groups[i] = IntentGroup{Intent: intent, Examples: examples}
			c.Intents = groups
			return c
		}
	}
	c.Intents = append(groups, IntentGroup{Intent: intent, Examples: []string{example}})
	return c
}

// RemoveIntentExample removes one example from the named group. Removing the
// last example removes the group itself.
func (c ContextConfig) RemoveIntentExample(intent, example string) ContextConfig {
	out := make([]IntentGroup, 0, len(c.Intents))
	for _, g := range c.Intents {
		if g.Intent != intent {
			out = append(out, g)
			continue
		}
		examples := make([]string, 0, len(g.Examples))
		removed := false
		for _, e := range g.Examples {
			if !removed && e == example {
				removed = true
				continue
			}
			examples = append(examples, e)
		}
		if len(examples) > 0 {
			out = append(out, IntentGroup{Intent: g.Intent, Examples: examples})
		}
	}
	c.Intents = out
	return c
}

var templateVarPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// TemplateVariables extracts the {placeholder} names from a template string,
// in order of first appearance, without duplicates.
func TemplateVariables(template string) []string {
	matches := templateVarPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	vars := []string{}
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		vars = append(vars, m[1])
	}
	return vars
}

// AddTemplate appends a named response template, deriving its variable list
// from the {placeholder} markers in the body.
func (r ResponseConfig) AddTemplate(name, template, description string) ResponseConfig {
	name = strings.TrimSpace(name)
	template = strings.TrimSpace(template)
	if name == "" || template == "" {
		return r
	}
	r.Templates = append(append([]ResponseTemplate{}, r.Templates...), ResponseTemplate{
		ID:          uuid.NewString(),
		Name:        name,
		Template:    template,
		Variables:   TemplateVariables(template),
		Description: strings.TrimSpace(description),
	})
	return r
}

// RemoveTemplate removes the template at index.
func (r ResponseConfig) RemoveTemplate(index int) ResponseConfig {
	r.Templates = removeAt(r.Templates, index)
	return r
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe section ID from a display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// AddSection appends a message-structure section. The ID is slugified from
// the name once, here, and never changes afterwards; a numeric suffix keeps
// it unique when the same name is added twice.
func (r ResponseConfig) AddSection(name string) ResponseConfig {
	name = strings.TrimSpace(name)
	if name == "" {
		return r
	}
	base := Slugify(name)
	if base == "" {
		return r
	}
	id := base
	for n := 2; r.sectionExists(id); n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	r.Sections = append(append([]MessageSection{}, r.Sections...), MessageSection{
		ID:      id,
		Name:    name,
		Enabled: true,
	})
	return r
}

func (r ResponseConfig) sectionExists(id string) bool {
	for _, s := range r.Sections {
		if s.ID == id {
			return true
		}
	}
	return false
}

// RemoveSection removes the section at index.
func (r ResponseConfig) RemoveSection(index int) ResponseConfig {
	r.Sections = removeAt(r.Sections, index)
	return r
}

// SectionPatch carries the editable section fields for an update. Nil fields
// are left untouched.
type SectionPatch struct {
	Name    *string `json:"name,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// UpdateSection shallow-merges the patch into the section with the given
// stable ID. Unknown IDs are a silent no-op; the ID itself never changes.
func (r ResponseConfig) UpdateSection(id string, patch SectionPatch) ResponseConfig {
	sections := make([]MessageSection, len(r.Sections))
	copy(sections, r.Sections)
	for i, s := range sections {
		if s.ID != id {
			continue
		}
		if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
			s.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Enabled != nil {
			s.Enabled = *patch.Enabled
		}
		sections[i] = s
	}
	r.Sections = sections
	return r
}

// AddWebhookEvent appends an event name to the webhook integration.
func (s SystemIntegration) AddWebhookEvent(event string) SystemIntegration {
	s.Webhook.Events = appendTrimmed(s.Webhook.Events, event)
	return s
}

// RemoveWebhookEvent removes the webhook event at index.
func (s SystemIntegration) RemoveWebhookEvent(index int) SystemIntegration {
	s.Webhook.Events = removeAt(s.Webhook.Events, index)
	return s
}
