// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Package authz is the authorization decision engine.
//
// Decisions happen in two layers. The route layer is a role gate
// backed by a Casbin enforcer over an embedded model and policy: it
// answers "may this role call this route at all" before any resource
// is loaded. The resource layer is a set of pure functions over
// (subject, resource) snapshots: it answers "may this subject act on
// this specific project, document, or message" using ownership,
// assignment, and access-list fields only.
//
// Resource gates are total and side-effect free. The admin role is
// granted by a single bypass wrapper composed onto every gate, so the
// bypass cannot drift between rules. List endpoints use scope values
// from filter.go instead of post-filtering, so a subject never loads
// rows it cannot see.
package authz
