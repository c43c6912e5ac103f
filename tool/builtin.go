package tool

import "github.com/puntini/puntini/logging"

// builtins maps the built-in extractor names to their constructors.
var builtins = map[string]Constructor{
	"extract_project":      nodeBuiltin(projectSpec),
	"extract_user":         nodeBuiltin(userSpec),
	"extract_epic":         nodeBuiltin(epicSpec),
	"extract_issue":        nodeBuiltin(issueSpec),
	"extract_relationship": relationshipBuiltin,
}

func nodeBuiltin(spec NodeExtractorSpec) Constructor {
	return func(deps Dependencies) Extractor {
		return NewNodeExtractor(deps.Model, spec, func(o *Options) {
			o.Logger = loggerOrNoOp(deps.Logger)
		})
	}
}

func relationshipBuiltin(deps Dependencies) Extractor {
	return NewRelationshipExtractor(deps.Model, func(o *Options) {
		o.Logger = loggerOrNoOp(deps.Logger)
	})
}

func loggerOrNoOp(logger logging.Logger) logging.Logger {
	if logger == nil {
		return logging.NoOpLogger{}
	}
	return logger
}

var projectSpec = NodeExtractorSpec{
	Name:         "extract_project",
	Description:  "Extract project entities (key, name, description) from the goal",
	Capabilities: []string{"project"},
	Label:        "Project",
	KeyFields:    []string{"key", "name"},
	System: `You extract project entities from project management requests.
Respond with a JSON array of objects with fields: key, name and optionally description.
The key is the short uppercase project identifier when one is given.`,
}

var userSpec = NodeExtractorSpec{
	Name:         "extract_user",
	Description:  "Extract user entities (name) from the goal",
	Capabilities: []string{"user", "member", "person"},
	Label:        "User",
	KeyFields:    []string{"key", "name"},
	System: `You extract user entities from project management requests.
Respond with a JSON array of objects with fields: name and optionally key.`,
}

var epicSpec = NodeExtractorSpec{
	Name:         "extract_epic",
	Description:  "Extract epic entities (title) from the goal",
	Capabilities: []string{"epic"},
	Label:        "Epic",
	KeyFields:    []string{"key", "title"},
	System: `You extract epic entities from project management requests.
Respond with a JSON array of objects with fields: title and optionally key.`,
}

var issueSpec = NodeExtractorSpec{
	Name:         "extract_issue",
	Description:  "Extract issue entities (title, status) from the goal",
	Capabilities: []string{"issue", "task", "bug", "ticket"},
	Label:        "Issue",
	KeyFields:    []string{"key", "title"},
	System: `You extract issue entities from project management requests.
Respond with a JSON array of objects with fields: title and optionally key and status.
Status must be one of: open, in_progress, done, blocked.`,
}
