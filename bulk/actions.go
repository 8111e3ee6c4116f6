// ABOUTME: Bulk action identifiers and the transform table behind them
// ABOUTME: Parses "activate", "tag:vip", "export:csv" style ids into Actions
package bulk

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/pipeboard/models"
)

// Kind is the verb of a bulk action.
type Kind string

const (
	KindActivate   Kind = "activate"
	KindDeactivate Kind = "deactivate"
	KindTag        Kind = "tag"
	KindUntagAll   Kind = "untagAll"
	KindDelete     Kind = "delete"
	KindExport     Kind = "export"
)

// ExportFormats lists the formats accepted after "export:".
var ExportFormats = []string{"csv", "json", "pdf", "xlsx"}

// Action is a parsed action id. Arg holds the tag name or export format.
type Action struct {
	Kind Kind
	Arg  string
}

func (a Action) String() string {
	if a.Arg == "" {
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + a.Arg
}

// Transform mutates one record in place for a mutating action.
type Transform func(c *models.Customer, arg string, now time.Time)

// builtins is the closed set of mutating actions. New ones are added through
// Dispatcher.Register, not by editing the dispatcher.
var builtins = map[Kind]Transform{
	KindActivate: func(c *models.Customer, _ string, now time.Time) {
		c.Status = models.CustomerActive
		c.UpdatedAt = now
	},
	KindDeactivate: func(c *models.Customer, _ string, now time.Time) {
		c.Status = models.CustomerInactive
		c.UpdatedAt = now
	},
	KindTag: func(c *models.Customer, tag string, now time.Time) {
		if !c.HasAnyTag([]string{tag}) {
			c.Tags = append(c.Tags, tag)
		}
		c.UpdatedAt = now
	},
	KindUntagAll: func(c *models.Customer, _ string, now time.Time) {
		c.Tags = nil
		c.UpdatedAt = now
	},
}

// ParseAction parses a built-in action id.
func ParseAction(id string) (Action, error) {
	kind, arg, hasArg := strings.Cut(strings.TrimSpace(id), ":")
	a := Action{Kind: Kind(kind), Arg: strings.TrimSpace(arg)}

	switch a.Kind {
	case KindActivate, KindDeactivate, KindUntagAll, KindDelete:
		if hasArg {
			return Action{}, fmt.Errorf("%w: %q takes no argument", ErrInvalidAction, kind)
		}
	case KindTag:
		if a.Arg == "" {
			return Action{}, fmt.Errorf("%w: tag needs a tag name, e.g. tag:vip", ErrInvalidAction)
		}
	case KindExport:
		if !validFormat(a.Arg) {
			return Action{}, fmt.Errorf("%w: export format %q (valid: %s)", ErrInvalidAction, a.Arg, strings.Join(ExportFormats, ", "))
		}
	default:
		return Action{}, fmt.Errorf("%w: unknown action %s", ErrInvalidAction, id)
	}
	return a, nil
}

func validFormat(f string) bool {
	for _, v := range ExportFormats {
		if v == f {
			return true
		}
	}
	return false
}

func (a Action) mutates() bool {
	return a.Kind != KindDelete && a.Kind != KindExport
}
