// Package tgui provides small helpers for Telegram HTML text:
// escaping, inline formatting and Telegram size limits.
//
// Values of type H are safe to send with ParseMode="HTML".
package tgui
