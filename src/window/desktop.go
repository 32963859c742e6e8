package window

import (
	"context"

	"github.com/go-vgo/robotgo"
	"github.com/shirou/gopsutil/v4/process"
)

type systemDesktop struct{}

func (systemDesktop) processes(ctx context.Context) ([]procInfo, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]procInfo, 0, len(ps))
	for _, p := range ps {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Processes can exit or deny access between listing and naming.
			continue
		}
		out = append(out, procInfo{PID: int(p.Pid), Name: name})
	}
	return out, nil
}

func (systemDesktop) activate(pid int) error {
	return robotgo.ActivePid(pid)
}

func (systemDesktop) bounds(pid int) (int, int, int, int) {
	return robotgo.GetBounds(pid)
}
