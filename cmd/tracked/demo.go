package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vango-dev/tracked/internal/errors"
	"github.com/vango-dev/tracked/pkg/observable"
	"github.com/vango-dev/tracked/pkg/observer"
)

func demoCmd() *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a reactive counter in the terminal",
		Long: `Run a small counter store.

An autorun prints the count every time it changes, and a component
re-renders through a coalescing refresh queue. The count is bumped by
a method bound to the tracked store, so its writes notify.

Examples:
  tracked demo
  tracked demo --times=5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 0 {
				return errors.New("E201").
					WithDetail(fmt.Sprintf("--times must not be negative, got %d", times))
			}
			return runDemo(cmd.OutOrStdout(), times)
		},
	}

	cmd.Flags().IntVarP(&times, "times", "n", 3, "Number of increments")

	return cmd
}

func runDemo(w io.Writer, times int) error {
	rt := observable.NewRuntime()

	store := rt.Wrap(map[string]any{
		"count": 0,
		"increment": observable.Method(func(self *observable.Object, args ...any) any {
			n, _ := observable.GetAs[int](self, "count")
			if err := self.Set("count", n+1); err != nil {
				return err
			}
			return n + 1
		}),
	})

	printer := rt.Autorun(func() {
		fmt.Fprintf(w, "count: %v\n", store.Get("count"))
	}, observable.WithName("printer"))
	defer printer.Dispose()

	queue := observer.NewQueue()
	var label *observer.Component[string]
	label = observer.New(rt, func() string {
		return fmt.Sprintf("[%v]", store.Get("count"))
	}, func() {
		queue.Request(label.ID(), func() {
			fmt.Fprintf(w, "render: %s\n", label.Render())
		})
	}, observable.WithName("label"))
	defer label.Dispose()

	fmt.Fprintf(w, "render: %s\n", label.Render())

	for i := 0; i < times; i++ {
		if err := increment(store); err != nil {
			return err
		}
		queue.Flush()
	}

	success(w, "%d increments, %d renders", times, label.Renders())
	return nil
}

// increment calls the store's increment method. An error returned as the
// method's result is reported like a failed call.
func increment(store *observable.Object) error {
	res, err := store.Call("increment")
	if err != nil {
		return err
	}
	if err, ok := res.(error); ok {
		return err
	}
	return nil
}
