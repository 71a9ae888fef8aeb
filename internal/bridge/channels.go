package bridge

import (
	"context"

	"github.com/hearthdesk/hearth/internal/approval"
	"github.com/hearthdesk/hearth/internal/cliexec"
	"github.com/hearthdesk/hearth/internal/fileops"
	"github.com/hearthdesk/hearth/internal/project"
	"github.com/hearthdesk/hearth/internal/watch"
	"github.com/hearthdesk/hearth/pkg/models"
)

// CoreServices are the host components behind the channel registry.
type CoreServices struct {
	Projects  *project.Registry
	Watches   *watch.Manager
	Engine    *cliexec.Engine
	Approvals *approval.Registry
	Hub       *Hub
}

// RegisterCoreChannels binds every pre-registered channel to its handler.
// This is the whole channel set; there is no runtime extension point.
func RegisterCoreChannels(d *Dispatcher, svc CoreServices) {
	d.Register(models.ChannelProjectOpen, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		var req models.OpenProjectRequest
		if err := DecodePayload(models.ChannelProjectOpen, payload, &req); err != nil {
			return nil, err
		}

		state, err := svc.Projects.Open(req.Path)
		if err != nil {
			return nil, err
		}

		// Opening a project starts its file watch; changes stream to the
		// UI on file:change. A reopen replaces any previous watch.
		if err := svc.Watches.Start(state.Path, func(ev models.FileChangeEvent) {
			svc.Hub.Publish(models.ChannelFileChange, ev)
		}); err != nil {
			return nil, err
		}

		return state, nil
	})

	d.Register(models.ChannelProjectState, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		return svc.Projects.State(), nil
	})

	d.Register(models.ChannelFileRead, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		var req models.ReadFileRequest
		if err := DecodePayload(models.ChannelFileRead, payload, &req); err != nil {
			return nil, err
		}
		return fileops.Read(req)
	})

	d.Register(models.ChannelCliExecute, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		var req models.ExecuteRequest
		if err := DecodePayload(models.ChannelCliExecute, payload, &req); err != nil {
			return nil, err
		}
		return svc.Engine.Execute(req)
	})

	d.Register(models.ChannelCliCancel, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		var req models.CancelRequest
		if err := DecodePayload(models.ChannelCliCancel, payload, &req); err != nil {
			return nil, err
		}
		if err := svc.Engine.Cancel(req.ExecutionID); err != nil {
			return nil, err
		}
		return models.CancelResult{Success: true}, nil
	})

	d.Register(models.ChannelApprovalSubmit, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		var req models.ApprovalRequest
		if err := DecodePayload(models.ChannelApprovalSubmit, payload, &req); err != nil {
			return nil, err
		}
		return svc.Approvals.Submit(req), nil
	})

	d.Register(models.ChannelApprovalStatus, func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		var req models.ApprovalStatusRequest
		if err := DecodePayload(models.ChannelApprovalStatus, payload, &req); err != nil {
			return nil, err
		}
		return svc.Approvals.Status(req.ID)
	})
}
