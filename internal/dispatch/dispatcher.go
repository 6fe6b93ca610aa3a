// Package dispatch maps a single selector flag to the handler of one script.
//
// A script declares its routes statically as method expressions on its
// service type, so the verb table (and therefore the usage text) exists
// before configuration is loaded. The service itself is built only once
// the selector resolved to a handler.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/catalystcommunity/anvil/v1/internal/logging"
	"github.com/urfave/cli/v3"
)

// Handler runs one action against the script's service
type Handler[S any] func(svc S, ctx context.Context) error

// Route binds a verb to its handler
type Route[S any] struct {
	Verb    Verb
	Summary string
	Handler Handler[S]
}

// Builder constructs the script's service when its command runs
type Builder[S any] func(ctx context.Context, cmd *cli.Command) (S, error)

// Dispatcher holds the closed verb table of one script
type Dispatcher[S any] struct {
	name   string
	header string
	routes []Route[S]
}

// New creates a dispatcher. It panics on a duplicate or unknown verb since
// route tables are fixed at compile time.
func New[S any](name, header string, routes ...Route[S]) *Dispatcher[S] {
	seen := make(map[Verb]bool, len(routes))
	for _, r := range routes {
		if _, ok := verbNames[r.Verb]; !ok {
			panic(fmt.Sprintf("dispatch: %s: unknown verb %d", name, int(r.Verb)))
		}
		if seen[r.Verb] {
			panic(fmt.Sprintf("dispatch: %s: duplicate route for %s", name, r.Verb))
		}
		if r.Handler == nil {
			panic(fmt.Sprintf("dispatch: %s: nil handler for %s", name, r.Verb))
		}
		seen[r.Verb] = true
	}
	return &Dispatcher[S]{name: name, header: header, routes: routes}
}

// Name returns the script name
func (d *Dispatcher[S]) Name() string {
	return d.name
}

// Header returns the one-line script description printed before usage
func (d *Dispatcher[S]) Header() string {
	return d.header
}

// Verbs returns the verbs the script supports in route order
func (d *Dispatcher[S]) Verbs() []Verb {
	verbs := make([]Verb, 0, len(d.routes))
	for _, r := range d.routes {
		verbs = append(verbs, r.Verb)
	}
	return verbs
}

// Usage renders the usage message
func (d *Dispatcher[S]) Usage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "usage: anvil %s -x <action>\n\nactions:\n", d.name)

	width := 0
	for _, r := range d.routes {
		if n := len(r.Verb.String()); n > width {
			width = n
		}
	}
	for _, r := range d.routes {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, r.Verb.String(), r.Summary)
	}
	return b.String()
}

// Resolve maps the selector to a handler. Unknown selectors and verbs this
// script does not route return a *UsageError.
func (d *Dispatcher[S]) Resolve(selector string) (Handler[S], error) {
	verb, err := ParseVerb(selector)
	if err != nil {
		return nil, err
	}
	for _, r := range d.routes {
		if r.Verb == verb {
			return r.Handler, nil
		}
	}
	return nil, &UsageError{Reason: fmt.Sprintf("action %q is not supported by %s", verb, d.name)}
}

// Dispatch resolves the selector and runs the handler against svc. On a
// usage error the usage message (preceded by the header when no selector
// was given) is written to stderr.
func (d *Dispatcher[S]) Dispatch(ctx context.Context, svc S, selector string, stderr io.Writer) error {
	handler, err := d.Resolve(selector)
	if err != nil {
		d.writeUsage(stderr, selector, err)
		return err
	}
	return handler(svc, ctx)
}

func (d *Dispatcher[S]) writeUsage(w io.Writer, selector string, err error) {
	if strings.TrimSpace(selector) == "" {
		fmt.Fprintf(w, "%s\n\n", d.header)
	} else {
		fmt.Fprintf(w, "%v\n\n", err)
	}
	fmt.Fprint(w, d.Usage())
}

// Command adapts the dispatcher to a urfave/cli subcommand carrying the
// -x selector flag. build is only called once the selector resolved.
func (d *Dispatcher[S]) Command(build Builder[S]) *cli.Command {
	names := make([]string, 0, len(d.routes))
	for _, v := range d.Verbs() {
		names = append(names, v.String())
	}

	return &cli.Command{
		Name:  d.name,
		Usage: d.header,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "x",
				Aliases: []string{"action"},
				Usage:   "action to run: " + strings.Join(names, ", "),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			selector := cmd.String("x")
			handler, err := d.Resolve(selector)
			if err != nil {
				d.writeUsage(errWriter(cmd), selector, err)
				return err
			}

			svc, err := build(ctx, cmd)
			if err != nil {
				return err
			}

			log := logging.FromContext(ctx).With("script", d.name, "action", selector)
			log.Info("starting")
			if err := handler(svc, logging.WithLogger(ctx, log)); err != nil {
				return err
			}
			log.Info("finished")
			return nil
		},
	}
}

func errWriter(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}
	return os.Stderr
}
