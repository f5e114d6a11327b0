// Copyright 2026 The OpenTrusty Authors
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

package http

import "context"

type contextKey string

const (
	actorIDKey     contextKey = "actor_id"
	requestInfoKey contextKey = "request_info"
)

// ActorHeader carries the id of the acting user, set by the session gateway
// in front of this service.
const ActorHeader = "X-User-ID"

// WithActorID returns a copy of ctx carrying the acting user id.
func WithActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// GetActorID retrieves the acting user id from context.
func GetActorID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorIDKey).(int64)
	return id, ok
}

// requestInfo is attached by LoggingMiddleware and filled in by handlers
// further down the chain, whose derived contexts the logger cannot see.
type requestInfo struct {
	actorID int64
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey, info), info
}

func recordActor(ctx context.Context, id int64) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.actorID = id
	}
}
