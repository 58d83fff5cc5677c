// Package models defines the persisted domain records for splitledger.
//
// # Records
//
//   - Group: a set of members who share expenses
//   - Expense: an amount fronted by one member and split by percentage
//   - Settlement: a recorded payment between two members
//   - User: a registered account
//
// Members are referenced by user ID strings everywhere. Relationships are
// expressed with ID strings rather than pointers, and an expense references its
// group but a group never embeds its expenses; they are fetched by query.
//
// Balances and suggested transfers are never persisted. They are derived on
// every request by the calculator package.
package models
