package agents

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/models"
)

// shallowCopy clones the state with its own message slice and debate
// structs so concurrent node runs never race. Report fields copy by
// value and are merged back by the caller.
func shallowCopy(state *models.AgentState) *models.AgentState {
	clone := *state
	clone.Messages = nil
	if state.InvestDebateState != nil {
		d := *state.InvestDebateState
		clone.InvestDebateState = &d
	}
	if state.RiskDebateState != nil {
		r := *state.RiskDebateState
		clone.RiskDebateState = &r
	}
	return &clone
}

// ParallelAnalystsNode runs the selected analysts concurrently on
// state copies and merges their reports. Used instead of the serial
// analyst chain when parallel mode is on.
func (a *Agents) ParallelAnalystsNode() (NodeFunc, error) {
	type analystRun struct {
		key  string
		fn   NodeFunc
		slot func(*models.AgentState) *string
	}

	specs := a.analystSpecs()
	runs := make([]analystRun, 0, len(a.selected))
	for _, key := range a.selected {
		spec, ok := specs[key]
		if !ok {
			return nil, fmt.Errorf("unknown analyst type: %s", key)
		}
		fn, err := a.AnalystNode(key)
		if err != nil {
			return nil, err
		}
		runs = append(runs, analystRun{key: key, fn: fn, slot: spec.reportSlot})
	}

	return func(ctx context.Context, state *models.AgentState) error {
		var wg sync.WaitGroup
		clones := make([]*models.AgentState, len(runs))
		errs := make([]error, len(runs))

		for i, run := range runs {
			wg.Add(1)
			clone := shallowCopy(state)
			clones[i] = clone
			go func(i int, run analystRun) {
				defer wg.Done()
				errs[i] = run.fn(ctx, clone)
			}(i, run)
		}
		wg.Wait()

		for i, run := range runs {
			if errs[i] != nil {
				return fmt.Errorf("parallel analyst %s: %w", run.key, errs[i])
			}
			*run.slot(state) = *run.slot(clones[i])
		}

		state.Messages = []*schema.Message{schema.UserMessage("Continue")}
		if a.cfg.MaxDebateRounds == 1 {
			state.Goto = consts.InvestDebate
		} else {
			state.Goto = consts.BullResearcher
		}
		return nil
	}, nil
}

// InvestDebateNode runs one bull and one bear argument concurrently
// and hands the debate to the research manager. Used when the debate
// budget is a single round.
func (a *Agents) InvestDebateNode() NodeFunc {
	bull := a.BullResearcherNode()
	bear := a.BearResearcherNode()

	return func(ctx context.Context, state *models.AgentState) error {
		bullState := shallowCopy(state)
		bearState := shallowCopy(state)

		var wg sync.WaitGroup
		var bullErr, bearErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			bullErr = bull(ctx, bullState)
		}()
		go func() {
			defer wg.Done()
			bearErr = bear(ctx, bearState)
		}()
		wg.Wait()

		if bullErr != nil {
			return bullErr
		}
		if bearErr != nil {
			return bearErr
		}

		debate := state.InvestDebateState
		debate.BullHistory = bullState.InvestDebateState.BullHistory
		debate.BearHistory = bearState.InvestDebateState.BearHistory
		debate.History = debate.BullHistory + debate.BearHistory
		debate.CurrentResponse = bearState.InvestDebateState.CurrentResponse
		debate.Count = 2

		state.Goto = consts.ResearchManager
		return nil
	}
}

// RiskDebateNode runs all three risk stances concurrently and hands
// the discussion to the risk judge. Used when the risk budget is a
// single round.
func (a *Agents) RiskDebateNode() (NodeFunc, error) {
	risky, err := a.RiskDebatorNode(consts.RiskyAnalyst)
	if err != nil {
		return nil, err
	}
	safe, err := a.RiskDebatorNode(consts.SafeAnalyst)
	if err != nil {
		return nil, err
	}
	neutral, err := a.RiskDebatorNode(consts.NeutralAnalyst)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, state *models.AgentState) error {
		states := []*models.AgentState{shallowCopy(state), shallowCopy(state), shallowCopy(state)}
		fns := []NodeFunc{risky, safe, neutral}
		errs := make([]error, 3)

		var wg sync.WaitGroup
		for i := range fns {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = fns[i](ctx, states[i])
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return err
			}
		}

		rd := state.RiskDebateState
		rd.RiskyHistory = states[0].RiskDebateState.RiskyHistory
		rd.SafeHistory = states[1].RiskDebateState.SafeHistory
		rd.NeutralHistory = states[2].RiskDebateState.NeutralHistory
		rd.CurrentRiskyResponse = states[0].RiskDebateState.CurrentRiskyResponse
		rd.CurrentSafeResponse = states[1].RiskDebateState.CurrentSafeResponse
		rd.CurrentNeutralResponse = states[2].RiskDebateState.CurrentNeutralResponse
		rd.History = rd.RiskyHistory + rd.SafeHistory + rd.NeutralHistory
		rd.LatestSpeaker = "Neutral Analyst"
		rd.Count = 3

		state.Goto = consts.RiskJudge
		return nil
	}, nil
}
