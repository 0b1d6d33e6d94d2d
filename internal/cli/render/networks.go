package render

import (
	"fmt"
	"io"

	"github.com/capybara-io/capydeploy/internal/usecase"
	"github.com/fatih/color"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out io.Writer
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer) *NetworksRenderer {
	return &NetworksRenderer{
		out: out,
	}
}

// RenderNetworksList renders every configured network and whether it loads
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured (add a `networks` section to capydeploy.yaml)")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	header := []any{"", "NETWORK", "ENDPOINT", "NETWORK ID", "SOLC"}
	if result.Probed {
		header = append(header, "CHAIN ID")
	}

	t := newTable(r.out, header...)
	for _, network := range result.Networks {
		if network.Error != nil {
			row := []any{"❌", network.Name, color.New(color.FgRed).Sprint(network.Error.Error()), "", ""}
			if result.Probed {
				row = append(row, "")
			}
			t.AppendRow(row)
			continue
		}

		cfg := network.Config
		row := []any{"✅", network.Name, cfg.RPCURL(), cfg.NetworkID, cfg.CompilerVersion}
		if result.Probed {
			row = append(row, chainIDCell(network))
			if network.ProbeErr != nil {
				row[0] = "⚠️"
			}
		}
		t.AppendRow(row)
	}
	t.Render()

	if result.Probed {
		for _, network := range result.Networks {
			if network.ProbeErr != nil {
				color.New(color.FgYellow).Fprintf(r.out, "%s: %v\n", network.Name, network.ProbeErr)
			}
		}
	}

	return nil
}

func chainIDCell(network usecase.NetworkStatus) string {
	switch {
	case network.ChainID != 0:
		return fmt.Sprintf("%d", network.ChainID)
	case network.ProbeErr != nil:
		return color.New(color.FgRed).Sprint("unreachable")
	default:
		return ""
	}
}
