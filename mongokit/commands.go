package main

import (
	"context"
	"strings"

	"github.com/sandrolain/mongokit/pkg/datakit"
	"github.com/sandrolain/mongokit/pkg/ops"
	"github.com/sandrolain/mongokit/pkg/toolutil"
)

// hazard tells how much stored data a command overwrites.
type hazard int

const (
	harmless hazard = iota
	replaces
	merges
)

// describe appends the hazard warning to a help line.
func (h hazard) describe(short string) string {
	switch h {
	case replaces:
		return short + " " + toolutil.Danger("(wipes out documents that are being replaced)")
	case merges:
		return short + " " + toolutil.Caution("(wipes out only specified fields)")
	}
	return short
}

// verbMeta describes a top level command grouping the commands of one verb.
type verbMeta struct {
	Name    string
	Aliases []string
	Short   string
	Hazard  hazard
}

// argMeta describes a positional argument. Optional arguments take Default
// when omitted.
type argMeta struct {
	Name     string
	Required bool
	Default  string
}

// flagMeta describes a boolean flag.
type flagMeta struct {
	Name        string
	Usage       string
	Destructive bool
}

// invocation is what a command receives: positional arguments by name and
// flag values.
type invocation struct {
	Args  map[string]string
	Flags map[string]bool
}

type handler func(ctx context.Context, o *ops.Operations, in invocation) error

// commandMeta describes a verb and noun pair. Commands are looked up by exact
// name or alias only.
type commandMeta struct {
	Verb        string
	Noun        string
	Aliases     []string
	Description string
	Args        []argMeta
	Flags       []flagMeta
	Hazard      hazard
	// AnyArgs disables the argument count check.
	AnyArgs bool
	Run     handler
}

var verbs = []verbMeta{
	{Name: "get", Aliases: []string{"g"}, Short: "Read data from the database"},
	{Name: "set", Aliases: []string{"s"}, Short: "Replace data in the database", Hazard: replaces},
	{Name: "update", Aliases: []string{"u"}, Short: "Partially update data in the database", Hazard: merges},
}

var (
	databaseArg   = argMeta{Name: "database", Required: true}
	collectionArg = argMeta{Name: "collection", Required: true}
	idArg         = argMeta{Name: "id", Required: true}
	outputArg     = argMeta{Name: "output", Default: datakit.StdStream}
	inputArg      = argMeta{Name: "input", Default: datakit.StdStream}
)

// registry lists every command in help order.
var registry = []commandMeta{
	{
		Verb:        "get",
		Noun:        "databases",
		Aliases:     []string{"dbs"},
		Description: "List the databases on the server",
		Args:        []argMeta{outputArg},
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.GetDatabases(ctx, in.Args["output"])
		},
	},
	{
		Verb:        "get",
		Noun:        "database",
		Aliases:     []string{"db"},
		Description: "Export every collection of a database with its documents",
		Args:        []argMeta{databaseArg, outputArg},
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.GetDatabase(ctx, in.Args["database"], in.Args["output"])
		},
	},
	{
		Verb:        "get",
		Noun:        "collections",
		Aliases:     []string{"cols"},
		Description: "List the collections of a database",
		Args:        []argMeta{databaseArg, outputArg},
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.GetCollections(ctx, in.Args["database"], in.Args["output"])
		},
	},
	{
		Verb:        "get",
		Noun:        "collection",
		Aliases:     []string{"col"},
		Description: "Export every document of a collection",
		Args:        []argMeta{databaseArg, collectionArg, outputArg},
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.GetCollection(ctx, in.Args["database"], in.Args["collection"], in.Args["output"])
		},
	},
	{
		Verb:        "get",
		Noun:        "documents",
		Aliases:     []string{"docs"},
		Description: "List the identifiers of the documents of a collection",
		Args:        []argMeta{databaseArg, collectionArg, outputArg},
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.GetDocuments(ctx, in.Args["database"], in.Args["collection"], in.Args["output"])
		},
	},
	{
		Verb:        "get",
		Noun:        "document",
		Aliases:     []string{"doc"},
		Description: "Export one document, or null when it does not exist",
		Args:        []argMeta{databaseArg, collectionArg, idArg, outputArg},
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.GetDocument(ctx, in.Args["database"], in.Args["collection"], in.Args["id"], in.Args["output"])
		},
	},
	{
		Verb:        "set",
		Noun:        "collection",
		Aliases:     []string{"col"},
		Description: "Replace or insert a sequence of documents keyed by _id",
		Args:        []argMeta{databaseArg, collectionArg, inputArg},
		Flags:       []flagMeta{{Name: "drop", Usage: "drop the collection before writing", Destructive: true}},
		Hazard:      replaces,
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.SetCollection(ctx, in.Args["database"], in.Args["collection"], in.Args["input"], in.Flags["drop"])
		},
	},
	{
		Verb:        "set",
		Noun:        "document",
		Aliases:     []string{"doc"},
		Description: "Replace or insert one document",
		Args:        []argMeta{databaseArg, collectionArg, {Name: "id"}, inputArg},
		Hazard:      replaces,
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.SetDocument(ctx, in.Args["database"], in.Args["collection"], in.Args["id"], in.Args["input"])
		},
	},
	{
		Verb:        "update",
		Noun:        "collection",
		Aliases:     []string{"col"},
		Description: "Not implemented",
		Flags:       []flagMeta{{Name: "upsert", Usage: "insert documents that do not exist"}},
		AnyArgs:     true,
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.UpdateCollection(ctx, in.Flags["upsert"])
		},
	},
	{
		Verb:        "update",
		Noun:        "document",
		Aliases:     []string{"doc"},
		Description: "Set the fields of the input document on a stored document",
		Args:        []argMeta{databaseArg, collectionArg, idArg, inputArg},
		Flags:       []flagMeta{{Name: "upsert", Usage: "insert the document when it does not exist"}},
		Hazard:      merges,
		Run: func(ctx context.Context, o *ops.Operations, in invocation) error {
			return o.UpdateDocument(ctx, in.Args["database"], in.Args["collection"], in.Args["id"], in.Args["input"], in.Flags["upsert"])
		},
	},
}

// use renders the cobra usage line, e.g. "document <database> <collection> <id> [output]".
func (m commandMeta) use() string {
	parts := []string{m.Noun}
	for _, a := range m.Args {
		if a.Required {
			parts = append(parts, "<"+a.Name+">")
		} else {
			parts = append(parts, "["+a.Name+"]")
		}
	}
	if m.AnyArgs {
		parts = append(parts, "[args...]")
	}
	return strings.Join(parts, " ")
}

func (m commandMeta) requiredArgs() int {
	n := 0
	for _, a := range m.Args {
		if a.Required {
			n++
		}
	}
	return n
}

// bind maps positional values to argument names, filling in defaults.
func (m commandMeta) bind(args []string, flags map[string]bool) invocation {
	in := invocation{Args: make(map[string]string, len(m.Args)), Flags: flags}
	for i, a := range m.Args {
		if i < len(args) {
			in.Args[a.Name] = args[i]
		} else {
			in.Args[a.Name] = a.Default
		}
	}
	return in
}
