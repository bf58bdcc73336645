package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

// View stampa l'albero dei widget come tabella: una riga per i valori globali,
// una riga per canale.
type View struct {
	tree *WidgetTree
}

func NewView(tree *WidgetTree) *View {
	return &View{tree: tree}
}

func (v *View) Render(w io.Writer) {
	t := v.tree.Copy()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "temperature\t%s\tmoisture\t%s\twater\t%s\n", t[WidgetTemperature], t[WidgetMoisture], t[WidgetWater])
	fmt.Fprintln(tw, "channel\tmode\tfrequency\tgoal\tstatus")
	for ch := 1; ch <= model.ChannelCount; ch++ {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", strconv.Itoa(ch),
			t[ModeWidget(ch)], t[FrequencyWidget(ch)], t[GoalWidget(ch)], t[StatusWidget(ch)])
	}
	_ = tw.Flush()
}

// Sink che ridisegna la vista ad ogni snapshot.
type viewSink struct {
	view *View
	out  io.Writer
}

func NewViewSink(view *View, out io.Writer) Sink {
	return &viewSink{view: view, out: out}
}

func (s *viewSink) Name() string { return "view" }

func (s *viewSink) Observe(_ context.Context, _ *model.Snapshot) error {
	s.view.Render(s.out)
	return nil
}
