package main

import (
	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/permission"
)

// Operations served or guarded by this deployment.
const (
	opUserCreate   = "user.create"
	opUserUpdate   = "user.update"
	opUserDelete   = "user.delete"
	opUserView     = "user.view"
	opUserMe       = "user.me"
	opFileUpload   = "file.upload"
	opFileView     = "file.view"
	opFileDelete   = "file.delete"
	opLockoutView  = "lockout.view"
	opLockoutReset = "lockout.reset"
)

func registerOperations(b *goGate.Builder) *goGate.Builder {
	var (
		createUser  = permission.New(permission.ActionCreate, permission.SubjectUser)
		viewUser    = permission.New(permission.ActionView, permission.SubjectUser)
		updateUser  = permission.New(permission.ActionUpdate, permission.SubjectUser)
		deleteUser  = permission.New(permission.ActionDelete, permission.SubjectUser)
		uploadImage = permission.New(permission.ActionUploadImage, permission.SubjectUser)
	)

	return b.
		WithOperation(opUserCreate, createUser).
		WithOperation(opUserUpdate, updateUser).
		WithOperation(opUserDelete, deleteUser).
		WithOperation(opUserView, viewUser).
		WithOpenOperation(opUserMe).
		WithOperation(opFileUpload, uploadImage).
		WithOperation(opFileView, viewUser).
		WithOperation(opFileDelete, deleteUser).
		WithOperation(opLockoutView, viewUser, updateUser).
		WithOperation(opLockoutReset, updateUser)
}
