// Package notification stores per-user notifications and streams new ones
// over WebSocket.
//
// Service.Notify persists a notification and publishes it on a
// broadcast.Broadcaster. Every open stream subscribes to the broadcaster
// and forwards only the notifications of its own user. All read and write
// operations are scoped to the session user; IDs owned by someone else
// answer 404.
package notification
