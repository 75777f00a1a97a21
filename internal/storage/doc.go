package storage

// Package storage persists the two durable record kinds of the bot:
//   - registered users (insert-if-absent; never mutated or deleted here)
//   - movies, keyed by a short alphanumeric code (upsert/get/delete)
