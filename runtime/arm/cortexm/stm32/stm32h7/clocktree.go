package stm32h7

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

// Clock tree node names.
const (
	ClockRef     = "ref"
	ClockPLL1Ref = "pll1_ref"
	ClockVCO1    = "vco1"
	ClockPLL1P   = "pll1_p"
	ClockPLL1Q   = "pll1_q"
	ClockSys     = "sys_ck"
	ClockHCLK    = "hclk"
	ClockAPB1    = "apb1"
	ClockAPB2    = "apb2"
	ClockAPB3    = "apb3"
	ClockAPB4    = "apb4"
)

// ClockNode is one clock signal. Its frequency is the frequency of its parent
// multiplied by Mul and divided by Div.
type ClockNode struct {
	id        int64
	Name      string
	Parent    string
	Mul       uint32
	Div       uint32
	Min       uint32
	Max       uint32
	Frequency uint32
}

func (n *ClockNode) ID() int64 {
	return n.id
}

// ClockTree is the clock tree produced by a ClockConfig.
type ClockTree struct {
	nodes map[string]*ClockNode
	order []*ClockNode
}

// NewClockTree derives the frequency of every clock from cfg and checks each
// against the ratings of the chip.
func NewClockTree(cfg ClockConfig) (*ClockTree, error) {
	if err := cfg.validateDividers(); err != nil {
		return nil, err
	}

	pll := cfg.PLL()
	t := &ClockTree{nodes: map[string]*ClockNode{}}

	ref := &ClockNode{Name: ClockRef, Frequency: cfg.Reference()}
	if cfg.Source == HSE {
		ref.Min, ref.Max = 4_000_000, 50_000_000
	}
	t.add(ref)
	t.add(&ClockNode{Name: ClockPLL1Ref, Parent: ClockRef, Div: pll.M, Min: 2_000_000, Max: 4_000_000})
	t.add(&ClockNode{Name: ClockVCO1, Parent: ClockPLL1Ref, Mul: pll.N, Min: 192_000_000, Max: 960_000_000})
	t.add(&ClockNode{Name: ClockPLL1P, Parent: ClockVCO1, Div: pll.P})
	t.add(&ClockNode{Name: ClockPLL1Q, Parent: ClockVCO1, Div: pll.Q})
	t.add(&ClockNode{Name: ClockSys, Parent: ClockPLL1P, Max: 480_000_000})
	t.add(&ClockNode{Name: ClockHCLK, Parent: ClockSys, Div: 2, Max: 240_000_000})
	for _, name := range []string{ClockAPB1, ClockAPB2, ClockAPB3, ClockAPB4} {
		t.add(&ClockNode{Name: name, Parent: ClockHCLK, Div: 2, Max: 120_000_000})
	}

	if err := t.propagate(); err != nil {
		return nil, err
	}

	// Integer dividers must hit both targets exactly
	if f := t.Frequency(ClockSys); f != cfg.Frequency {
		return nil, fmt.Errorf("%w: %s runs at %d Hz instead of %d Hz", ErrInvalidClock, ClockSys, f, cfg.Frequency)
	}
	if f := t.Frequency(ClockPLL1Q); f != USBFrequency {
		return nil, fmt.Errorf("%w: %s runs at %d Hz instead of %d Hz", ErrInvalidClock, ClockPLL1Q, f, USBFrequency)
	}
	return t, nil
}

func (t *ClockTree) add(n *ClockNode) {
	n.id = int64(len(t.nodes))
	if n.Mul == 0 {
		n.Mul = 1
	}
	if n.Div == 0 {
		n.Div = 1
	}
	t.nodes[n.Name] = n
}

func (t *ClockTree) propagate() error {
	// Order the nodes so every parent is computed before its children.
	g := multi.NewDirectedGraph()
	for _, n := range t.nodes {
		if n.Parent == "" {
			if g.Node(n.ID()) == nil {
				g.AddNode(n)
			}
			continue
		}
		parent, ok := t.nodes[n.Parent]
		if !ok {
			return fmt.Errorf("%w: %s has no parent %s", ErrInvalidClock, n.Name, n.Parent)
		}
		g.SetLine(g.NewLine(parent, n))
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) bool {
			return a.ID() < b.ID()
		})
	})
	if err != nil {
		return err
	}

	t.order = make([]*ClockNode, len(sorted))
	for i, node := range sorted {
		n := node.(*ClockNode)
		if n.Parent != "" {
			f := uint64(t.nodes[n.Parent].Frequency) * uint64(n.Mul) / uint64(n.Div)
			if f > 0xFFFFFFFF {
				return fmt.Errorf("%w: %s overflows", ErrInvalidClock, n.Name)
			}
			n.Frequency = uint32(f)
		}
		if n.Frequency < n.Min || (n.Max != 0 && n.Frequency > n.Max) {
			return fmt.Errorf("%w: %s at %d Hz outside [%d, %d]", ErrInvalidClock, n.Name, n.Frequency, n.Min, n.Max)
		}
		t.order[i] = n
	}
	return nil
}

// Frequency returns the frequency of the named clock, or 0 if the tree has no
// such clock.
func (t *ClockTree) Frequency(name string) uint32 {
	if n, ok := t.nodes[name]; ok {
		return n.Frequency
	}
	return 0
}

// Nodes returns the clocks ordered from the reference down to the buses.
func (t *ClockTree) Nodes() []*ClockNode {
	return t.order
}
