package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/agents"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/models"
)

// agentHandOff reads the routing decision the finished node left in
// state.Goto.
func agentHandOff(ctx context.Context, input string) (next string, err error) {
	_ = compose.ProcessState[*models.AgentState](ctx, func(_ context.Context, state *models.AgentState) error {
		next = state.Goto
		return nil
	})
	return next, nil
}

// nodeLambda adapts a NodeFunc into a graph lambda. The node runs
// under the graph's state lock and its Goto becomes the lambda output.
func nodeLambda(fn agents.NodeFunc) *compose.Lambda {
	return compose.InvokableLambdaWithOption(
		func(ctx context.Context, input string, opts ...any) (string, error) {
			var next string
			err := compose.ProcessState[*models.AgentState](ctx, func(ctx context.Context, state *models.AgentState) error {
				if err := fn(ctx, state); err != nil {
					return err
				}
				next = state.Goto
				return nil
			})
			return next, err
		})
}

// ParallelAnalystsNode is the graph key of the fused analyst stage.
const ParallelAnalystsNode = "Parallel Analysts"

// NewOrchestrator assembles the full pipeline graph. Every node ends
// by setting state.Goto; branches read it and hand off. All nodes are
// always present so any round configuration can route through them.
func NewOrchestrator(ctx context.Context, a *agents.Agents, cfg *config.Config,
	genFunc compose.GenLocalState[*models.AgentState]) (compose.Runnable[string, string], error) {

	g := compose.NewGraph[string, string](
		compose.WithGenLocalState(genFunc),
	)

	analystNodes := map[string]string{
		consts.AnalystMarket:       consts.MarketAnalyst,
		consts.AnalystSocial:       consts.SocialMediaAnalyst,
		consts.AnalystNews:         consts.NewsAnalyst,
		consts.AnalystFundamentals: consts.FundamentalsAnalyst,
	}
	clearNodes := map[string]string{
		consts.AnalystMarket:       consts.MsgClearMarket,
		consts.AnalystSocial:       consts.MsgClearSocial,
		consts.AnalystNews:         consts.MsgClearNews,
		consts.AnalystFundamentals: consts.MsgClearFundamentals,
	}

	var branchNodes []string

	addNode := func(name string, fn agents.NodeFunc) {
		_ = g.AddLambdaNode(name, nodeLambda(fn), compose.WithNodeName(name))
		branchNodes = append(branchNodes, name)
	}

	for _, key := range a.Selected() {
		fn, err := a.AnalystNode(key)
		if err != nil {
			return nil, err
		}
		addNode(analystNodes[key], fn)
		addNode(clearNodes[key], a.MsgClearNode(key))
	}

	if cfg.ParallelAnalysts {
		fn, err := a.ParallelAnalystsNode()
		if err != nil {
			return nil, err
		}
		addNode(ParallelAnalystsNode, fn)
	}

	addNode(consts.BullResearcher, a.BullResearcherNode())
	addNode(consts.BearResearcher, a.BearResearcherNode())
	addNode(consts.InvestDebate, a.InvestDebateNode())
	addNode(consts.ResearchManager, a.ResearchManagerNode())
	addNode(consts.Trader, a.TraderNode())

	for _, node := range []string{consts.RiskyAnalyst, consts.SafeAnalyst, consts.NeutralAnalyst} {
		fn, err := a.RiskDebatorNode(node)
		if err != nil {
			return nil, err
		}
		addNode(node, fn)
	}
	riskDebate, err := a.RiskDebateNode()
	if err != nil {
		return nil, err
	}
	addNode(consts.RiskDebate, riskDebate)
	addNode(consts.RiskJudge, a.RiskJudgeNode())

	// Any node may hand off to any other registered node or end the run.
	outMap := map[string]bool{compose.END: true}
	for _, name := range branchNodes {
		outMap[name] = true
	}
	for _, name := range branchNodes {
		_ = g.AddBranch(name, compose.NewGraphBranch(agentHandOff, outMap))
	}

	start := ParallelAnalystsNode
	if !cfg.ParallelAnalysts {
		if len(a.Selected()) == 0 {
			return nil, fmt.Errorf("no analysts selected")
		}
		start = analystNodes[a.Selected()[0]]
	}
	_ = g.AddEdge(compose.START, start)

	r, err := g.Compile(ctx,
		compose.WithGraphName("TradeMind-TradingAgents"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
	)
	if err != nil {
		return nil, fmt.Errorf("compile trading graph: %w", err)
	}
	return r, nil
}
