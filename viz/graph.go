// ABOUTME: Graphviz rendering of the pipeline and the customer directory
// ABOUTME: Produces DOT source for stage flow and industry clusters
package viz

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/pipeline"
)

// PipelineGraph chains the board's stages left to right, each node labelled
// with its live count and total value.
func PipelineGraph(ctx context.Context, board *pipeline.Board) (string, error) {
	return render(ctx, "Pipeline", func(graph *cgraph.Graph) error {
		graph.SetRankDir(cgraph.LRRank)

		var prev *cgraph.Node
		for _, agg := range board.Aggregates() {
			node, err := graph.CreateNodeByName(string(agg.Stage))
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor(stageColor(agg.Stage))
			node.SetLabel(fmt.Sprintf("%s\n%d leads\n%s", agg.Stage.Label(), agg.Count, export.FormatCents(agg.TotalValue)))

			if prev != nil {
				if _, err := graph.CreateEdgeByName("", prev, node); err != nil {
					return fmt.Errorf("failed to create stage edge: %w", err)
				}
			}
			// closed stages branch off negotiation rather than chaining
			if agg.Stage != models.StageClosedWon {
				prev = node
			}
		}
		return nil
	})
}

// CustomerGraph groups customers under their industry, edges labelled with status.
func CustomerGraph(ctx context.Context, customers []models.Customer) (string, error) {
	return render(ctx, "Customers", func(graph *cgraph.Graph) error {
		graph.SetRankDir(cgraph.LRRank)

		industries := make(map[string]*cgraph.Node)
		var names []string
		for _, c := range customers {
			industry := c.Industry
			if industry == "" {
				industry = "unknown"
			}
			if _, ok := industries[industry]; !ok {
				names = append(names, industry)
				industries[industry] = nil
			}
		}
		sort.Strings(names)
		for _, name := range names {
			node, err := graph.CreateNodeByName("industry_" + name)
			if err != nil {
				return fmt.Errorf("failed to create industry node: %w", err)
			}
			node.SetShape("ellipse")
			node.SetLabel(name)
			industries[name] = node
		}

		for _, c := range customers {
			node, err := graph.CreateNodeByName("customer_" + c.ID)
			if err != nil {
				return fmt.Errorf("failed to create customer node: %w", err)
			}
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor("lightblue")
			node.SetLabel(fmt.Sprintf("%s\n%s", c.Company, c.Bucket()))

			industry := c.Industry
			if industry == "" {
				industry = "unknown"
			}
			edge, err := graph.CreateEdgeByName("", industries[industry], node)
			if err != nil {
				return fmt.Errorf("failed to create customer edge: %w", err)
			}
			edge.SetLabel(string(c.Status))
		}
		return nil
	})
}

func stageColor(s models.Stage) string {
	switch s {
	case models.StageClosedWon:
		return "lightgreen"
	case models.StageClosedLost:
		return "lightgray"
	}
	return "lightyellow"
}

func render(ctx context.Context, label string, build func(*cgraph.Graph) error) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel(label)
	if err := build(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
