// Package user manages accounts, roles and profiles.
//
// Service holds the authorization rules: everyone manages themself, admins
// manage regular users and admins, and only a superadmin manages another
// superadmin. Roles can be changed by admins only, and superadmin is never
// assignable over HTTP. Repositories exist for PostgreSQL and memory.
package user
