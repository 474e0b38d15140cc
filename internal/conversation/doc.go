// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation implements the chat view session: history loading,
// message exchange and the conversation list.
//
// # State machine
//
// A Controller is always in one of three states:
//
//	Idle -> LoadingHistory -> Idle
//	Idle -> Submitting     -> Idle
//
// Every path back to Idle is guaranteed, including backend and network
// failures, which are appended to the view as assistant error bubbles.
//
// # Usage
//
//	ctrl := conversation.New(client, provider, conversation.DefaultOptions())
//	if ctrl.Navigate(user, conversation.ChatRoute("abc123")) {
//	    ctrl.Load(ctx)
//	}
//	res, ok := ctrl.SubmitAndWait(ctx, "What is gravity?")
//	if ok && res.Adopted {
//	    fmt.Println("now at", res.Route.Path())
//	}
//
// Event loops call the split steps instead (BeginLoad/FetchHistory/FinishLoad
// and Submit/Exchange/Finish) and run only the middle step off-thread.
package conversation
