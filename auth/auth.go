// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package auth defines the identity and permission contract the pipeline
// consumes. Authentication itself happens elsewhere; the pipeline only sees
// a pre-validated identity and coarse permission checks.
package auth

// Role is a coarse permission tier supplied by the authentication layer.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Identity is a pre-validated acting user.
type Identity struct {
	UserID string
	Role   Role
}

// Authorizer answers the coarse permission questions the pipeline asks.
// Implementations must be safe for concurrent use.
type Authorizer interface {
	CanUpload(id Identity) bool
	CanBulkEdit(id Identity) bool
	CanManageSystemTags(id Identity) bool
}

// RoleAuthorizer is a static role-based Authorizer: editors and admins can
// upload and bulk-edit, only admins manage system tags.
type RoleAuthorizer struct{}

var _ Authorizer = (*RoleAuthorizer)(nil)

func (RoleAuthorizer) CanUpload(id Identity) bool {
	return id.Role == RoleEditor || id.Role == RoleAdmin
}

func (RoleAuthorizer) CanBulkEdit(id Identity) bool {
	return id.Role == RoleEditor || id.Role == RoleAdmin
}

func (RoleAuthorizer) CanManageSystemTags(id Identity) bool {
	return id.Role == RoleAdmin
}
