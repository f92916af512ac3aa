// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package session

import "github.com/uap-core/uap/message"

// CreateResponse builds a reply to request addressed back to its sender,
// with the conventional "response-<id>" ID (§4.7).
func CreateResponse(request *message.Message, intent string, payload message.Payload) *message.Message {
	resp := message.New(request.Recipient, request.Sender, intent, payload, request.ContextID)
	resp.ID = "response-" + request.ID
	return resp
}

// CreateErrorResponse builds an IntentError reply carrying a code/message
// pair as its payload.
func CreateErrorResponse(request *message.Message, code, msg string) *message.Message {
	return CreateResponse(request, message.IntentError, map[string]any{
		"code":    code,
		"message": msg,
	})
}

// CreateAckResponse builds an empty-payload IntentAck reply.
func CreateAckResponse(request *message.Message) *message.Message {
	return CreateResponse(request, message.IntentAck, nil)
}
