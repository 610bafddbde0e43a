package store

import (
	"context"
	"errors"

	"concord/internal/consensus"
)

// FanoutRecorder 把一次评估同时写入多个存储（结果库 + 交互存档）。
// 任一写入失败不阻塞其余写入，错误合并返回。
type FanoutRecorder []consensus.Recorder

func (f FanoutRecorder) RecordRun(ctx context.Context, run consensus.RunRecord) error {
	var errs []error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.RecordRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
