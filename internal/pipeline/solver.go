package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/mip/bnb"
	"github.com/theirongolddev/cfplan/internal/mip/cbc"
)

// NewSolver returns the backend named in the solver settings.
func NewSolver(sc config.SolverConfig, log logrus.FieldLogger) (mip.Solver, error) {
	limit := time.Duration(sc.TimeLimitSecs) * time.Second
	switch sc.Backend {
	case config.BackendBranchAndBound:
		return bnb.New(bnb.Options{
			NodeSelect: bnb.NodeSelect(sc.NodeSelect),
			Branch:     bnb.Branching(sc.Branch),
			Gap:        sc.Gap,
			NodeLimit:  sc.NodeLimit,
			TimeLimit:  limit,
			Logger:     log,
		}), nil
	case config.BackendCBC:
		return cbc.New(cbc.Options{
			Path:      sc.CBCPath,
			TimeLimit: limit,
			Gap:       sc.Gap,
			Threads:   sc.Threads,
			Logger:    log,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown solver backend %q", config.ErrInvalidConfig, sc.Backend)
	}
}
