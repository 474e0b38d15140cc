// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	migrate "github.com/rubenv/sql-migrate"
)

// migrations is the dev backend schema, applied in Id order.
var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_conversations",
			Up: []string{`
CREATE TABLE conversations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL -- Unix nanoseconds
)`,
				`CREATE INDEX idx_conversations_user ON conversations(user_id, created_at)`,
			},
			Down: []string{`DROP TABLE conversations`},
		},
		{
			Id: "0002_messages",
			Up: []string{`
CREATE TABLE messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
)`,
				`CREATE INDEX idx_messages_conversation ON messages(conversation_id, id)`,
			},
			Down: []string{`DROP TABLE messages`},
		},
	},
}
