package app

import (
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/tasks/envtask"
	"github.com/vk/taskgrid/tasks/httptask"
	"github.com/vk/taskgrid/tasks/printtask"
)

// coreModules is the definitive list of task modules compiled into the
// binary.
var coreModules = []registry.Module{
	envtask.Module{},
	httptask.Module{},
	printtask.Module{},
}
