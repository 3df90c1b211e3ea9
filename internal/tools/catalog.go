// Package tools holds the automation building blocks offered to users and maps
// free-text descriptions onto them.
package tools

// Category groups tools by the role they play in a workflow.
type Category string

const (
	Trigger      Category = "trigger"
	ProcessLogic Category = "process"
	Action       Category = "action"
)

// Catalog is the ordered tool list of one category with the keywords that
// select each tool.
type Catalog struct {
	Category Category            `json:"category"`
	Tools    []string            `json:"tools"`
	Keywords map[string][]string `json:"-"`
}

// Match maps extracted text onto one of the catalog's tools.
func (c Catalog) Match(extracted string) string {
	return Match(c.Tools, c.Keywords, extracted)
}

// Contains reports whether name is one of the catalog's tools.
func (c Catalog) Contains(name string) bool {
	for _, t := range c.Tools {
		if t == name {
			return true
		}
	}
	return false
}

var triggerTools = []string{
	"Webhook Trigger",
	"Cron Trigger",
	"Manual Trigger",
	"Email Read IMAP",
	"Google Forms Trigger",
}

var processTools = []string{
	"Code (Function)",
	"IF Node",
	"Switch Node",
	"Set Node",
	"Merge Node",
	"Item Lists Node",
}

var actionTools = []string{
	"HTTP Request",
	"OpenAI Chat Model",
	"Slack (Send Message)",
	"Google Sheets (Append/Update)",
	"Notion (Create/Update Page)",
	"Email Send (SMTP)",
}

var triggerKeywords = map[string][]string{
	"Webhook Trigger":      {"webhook", "http request in", "incoming request", "post received", "get received"},
	"Cron Trigger":         {"schedule", "cron", "every day", "time-based", "interval", "daily", "weekly", "hourly", "定期"},
	"Manual Trigger":       {"manual", "start manually", "on demand"},
	"Email Read IMAP":      {"email received", "new email", "imap", "read email", "when i get an email"},
	"Google Forms Trigger": {"google form", "form submitted", "form response", "new survey response"},
}

var processKeywords = map[string][]string{
	"Code (Function)": {"code", "function", "script", "custom logic", "javascript", "python"},
	"IF Node":         {"if", "condition", "conditional"},
	"Switch Node":     {"switch", "case", "route by"},
	"Set Node":        {"set field", "edit field", "modify data", "add field"},
	"Merge Node":      {"merge", "join data", "combine"},
	"Item Lists Node": {"item list", "split array", "aggregate items", "loop over"},
}

var actionKeywords = map[string][]string{
	"HTTP Request":                  {"http request out", "call api", "send data", "post to", "get from"},
	"OpenAI Chat Model":             {"openai", "gpt", "chatgpt", "ai model", "generate text"},
	"Slack (Send Message)":          {"slack", "notify slack", "send slack message", "post to slack", "slack alert"},
	"Google Sheets (Append/Update)": {"google sheet", "spreadsheet", "add row to sheet", "update sheet"},
	"Notion (Create/Update Page)":   {"notion", "create page", "update notion"},
	"Email Send (SMTP)":             {"send email", "smtp", "email out", "email notification", "email to", "mail to", "send a message to email"},
}

// DefaultModels is the model list offered when none is configured.
var DefaultModels = []string{
	"openai/gpt-3.5-turbo",
	"openai/gpt-4",
	"anthropic/claude-3-haiku-20240307",
}

// Triggers returns the trigger catalog.
func Triggers() Catalog {
	return Catalog{Category: Trigger, Tools: clone(triggerTools), Keywords: triggerKeywords}
}

// Processes returns the process-logic catalog.
func Processes() Catalog {
	return Catalog{Category: ProcessLogic, Tools: clone(processTools), Keywords: processKeywords}
}

// Actions returns the action catalog.
func Actions() Catalog {
	return Catalog{Category: Action, Tools: clone(actionTools), Keywords: actionKeywords}
}

// OptionSet is everything a client needs to populate its selection boxes.
type OptionSet struct {
	TriggerTools      []string `json:"triggerTools"`
	ProcessLogicTools []string `json:"processLogicTools"`
	ActionTools       []string `json:"actionTools"`
	LLMModels         []string `json:"llmModels"`
}

// Options bundles the three catalogs with the given model list. An empty
// model list falls back to DefaultModels.
func Options(models []string) OptionSet {
	if len(models) == 0 {
		models = DefaultModels
	}
	return OptionSet{
		TriggerTools:      clone(triggerTools),
		ProcessLogicTools: clone(processTools),
		ActionTools:       clone(actionTools),
		LLMModels:         clone(models),
	}
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
