// Package vms defines the Go interface the (stubbed) VM manager
// collaborator would implement, so cmd/auraed has a place to wire a
// virtual-machine backend without this implementation taking on
// hypervisor management itself; VM integration is treated as an
// external collaborator reachable only through the interface it
// exposes.
package vms

import (
	"context"
	"errors"
)

// VirtualMachineID identifies one managed VM.
type VirtualMachineID string

// VirtualMachine is the minimal lifecycle a VM manager would expose
// alongside Cells/Executables: create, start, and stop a machine.
type VirtualMachine interface {
	Create(ctx context.Context, name string, vcpus int, memoryMB int64) (VirtualMachineID, error)
	Start(ctx context.Context, id VirtualMachineID) error
	Stop(ctx context.Context, id VirtualMachineID) error
	Remove(ctx context.Context, id VirtualMachineID) error
}

var errNotImplemented = errors.New("vms: virtual machine manager not implemented")

// Unimplemented is returned by any caller that reaches for a
// VirtualMachine manager before one is wired.
var Unimplemented VirtualMachine = unimplementedVM{}

type unimplementedVM struct{}

func (unimplementedVM) Create(context.Context, string, int, int64) (VirtualMachineID, error) {
	return "", errNotImplemented
}

func (unimplementedVM) Start(context.Context, VirtualMachineID) error { return errNotImplemented }
func (unimplementedVM) Stop(context.Context, VirtualMachineID) error  { return errNotImplemented }
func (unimplementedVM) Remove(context.Context, VirtualMachineID) error {
	return errNotImplemented
}
