package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/dukerupert/grocerylist/internal/client"
	"github.com/dukerupert/grocerylist/internal/grocery"
	"github.com/dukerupert/grocerylist/internal/model"
)

type app struct {
	client *client.Client
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"list":       {"list items (--tab today|upcoming|done, --category NAME)", runList},
	"get":        {"show one item", runGet},
	"add":        {"add an item", runAdd},
	"done":       {"mark an item completed", runSetCompleted(true)},
	"undo":       {"mark an item not completed", runSetCompleted(false)},
	"rm":         {"delete an item", runRemove},
	"categories": {"count items per category", runCategories},
}

var commandOrder = []string{"list", "get", "add", "done", "undo", "rm", "categories"}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newFlagSet(name string, a *app) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func oneID(name string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s: expected exactly one item ID", name)
	}
	return args[0], nil
}

func runList(ctx context.Context, a *app, args []string) error {
	var tab, category string
	fs := newFlagSet("list", a)
	fs.StringVar(&tab, "tab", "", "today, upcoming or done")
	fs.StringVar(&category, "category", "", "only show this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	if tab != "" {
		t, err := grocery.ParseTab(tab)
		if err != nil {
			return err
		}
		items = grocery.Filter(items, t, a.now())
	}
	if category != "" {
		items = grocery.FilterCategory(items, category)
	}

	printItems(a.out, items)
	return nil
}

func runGet(ctx context.Context, a *app, args []string) error {
	id, err := oneID("get", args)
	if err != nil {
		return err
	}
	item, err := a.client.Get(ctx, id)
	if err != nil {
		return err
	}
	printItems(a.out, []model.GroceryItem{*item})
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	var quantity, category, priority string
	var guess bool
	fs := newFlagSet("add", a)
	fs.StringVarP(&quantity, "quantity", "q", "", "quantity (default 1)")
	fs.StringVarP(&category, "category", "c", "", "category (default Uncategorized)")
	fs.StringVarP(&priority, "priority", "p", "", "low, medium or high (default low)")
	fs.BoolVarP(&guess, "guess-category", "g", false, "pick a category from the item name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fields, err := client.NewItem(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	if quantity != "" {
		fields.Quantity = model.Ptr(quantity)
	}
	switch {
	case category != "":
		fields.Category = model.Ptr(category)
	case guess:
		fields.Category = model.Ptr(grocery.Categorize(*fields.Name))
	}
	if priority != "" {
		p := model.Priority(strings.ToLower(priority))
		switch p {
		case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
		default:
			return fmt.Errorf("add: unknown priority %q", priority)
		}
		fields.Priority = &p
	}

	item, err := a.client.Create(ctx, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added %s (%s)\n", model.Str(item.Name), item.ID)
	return nil
}

func runSetCompleted(completed bool) func(context.Context, *app, []string) error {
	name := "done"
	if !completed {
		name = "undo"
	}
	return func(ctx context.Context, a *app, args []string) error {
		id, err := oneID(name, args)
		if err != nil {
			return err
		}
		item, err := a.client.Patch(ctx, id, model.ItemFields{Completed: model.Ptr(completed)})
		if err != nil {
			return err
		}
		state := "open"
		if item.IsCompleted() {
			state = "done"
		}
		fmt.Fprintf(a.out, "%s: %s\n", model.Str(item.Name), state)
		return nil
	}
}

func runRemove(ctx context.Context, a *app, args []string) error {
	id, err := oneID("rm", args)
	if err != nil {
		return err
	}
	if err := a.client.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", id)
	return nil
}

func runCategories(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errors.New("categories: takes no arguments")
	}
	items, err := a.client.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tITEMS\tCOLOR\tICON")
	for _, s := range grocery.Summarize(items) {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.Count, s.Color, s.Icon)
	}
	return tw.Flush()
}

func printItems(w io.Writer, items []model.GroceryItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tCATEGORY\tPRIORITY\tDONE")
	for _, it := range items {
		priority := "-"
		if it.Priority != nil {
			priority = string(*it.Priority)
		}
		done := ""
		if it.IsCompleted() {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, orDash(it.Name), orDash(it.Quantity), grocery.CategoryOf(it), priority, done)
	}
	tw.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
