// Package domain defines the closed label and relation enumerations plus the
// per-entity field contracts the validation pipeline checks patches against.
package domain

import "fmt"

// Labels is the closed set of node labels the graph accepts.
var Labels = []string{"Project", "User", "Epic", "Issue", "Assignment"}

// Relations is the closed set of edge relations the graph accepts.
var Relations = []string{
	"HAS_EPIC", "HAS_ISSUE", "ASSIGNED_TO", "BLOCKS",
	"HAS_ASSIGNMENT", "ASSIGNMENT_OF",
}

// ValidLabel reports whether label belongs to the closed enumeration.
func ValidLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ValidRelation reports whether rel belongs to the closed enumeration.
func ValidRelation(rel string) bool {
	for _, r := range Relations {
		if r == rel {
			return true
		}
	}
	return false
}

// IssueStatuses is the closed set of issue workflow states.
var IssueStatuses = []string{"open", "in_progress", "done", "blocked"}

// Project is the domain record behind the Project label.
type Project struct {
	Key         string
	Name        string
	Description string
}

// User is the domain record behind the User label.
type User struct {
	Key  string
	Name string
}

// Epic is the domain record behind the Epic label.
type Epic struct {
	Key   string
	Title string
}

// Issue is the domain record behind the Issue label.
type Issue struct {
	Key    string
	Title  string
	Status string
}

// Assignment is the join record linking users to issues.
type Assignment struct {
	Key  string
	Role string
}

// fieldSpec declares one property's contract for a label.
type fieldSpec struct {
	name     string
	required bool
	check    func(any) error
}

func stringField(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	return nil
}

func issueStatusField(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	for _, valid := range IssueStatuses {
		if s == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid status %q", s)
}

// contracts maps each label to its property contract. Unknown properties are
// accepted (the graph is schemaless beyond the declared fields); declared
// fields must be present when required and must carry the right scalar type.
var contracts = map[string][]fieldSpec{
	"Project": {
		{name: "name", required: true, check: stringField},
		{name: "description", check: stringField},
	},
	"User": {
		{name: "name", required: true, check: stringField},
	},
	"Epic": {
		{name: "title", required: true, check: stringField},
	},
	"Issue": {
		{name: "title", required: true, check: stringField},
		{name: "status", check: issueStatusField},
	},
	"Assignment": {
		{name: "role", check: stringField},
	},
}

// CheckRecord validates key + props against the label's field contract,
// returning one error string per failing field. An unknown label yields no
// errors; the schema stage has already rejected out-of-enumeration labels.
func CheckRecord(label, key string, props map[string]any) []string {
	var errs []string
	if key == "" {
		errs = append(errs, fmt.Sprintf("%s: key is required", label))
	}
	specs, ok := contracts[label]
	if !ok {
		return errs
	}
	for _, spec := range specs {
		v, present := props[spec.name]
		if !present || v == nil {
			if spec.required {
				errs = append(errs, fmt.Sprintf("%s: required field %q is missing", label, spec.name))
			}
			continue
		}
		if spec.check != nil {
			if err := spec.check(v); err != nil {
				errs = append(errs, fmt.Sprintf("%s: field %q: %v", label, spec.name, err))
			}
		}
	}
	return errs
}
