// Package storage provides the small persistence layer used by the bot.
//
// It currently supports:
//   - The closed-notice flag (so "halls closed" is announced once, not
//     every cycle, across restarts)
//   - Delivery audit appends (one row per attempted message)
package storage
