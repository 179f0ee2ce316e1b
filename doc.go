// Package stm implements an in-process software transactional memory
// runtime: versioned, two-slot cells opened inside composable,
// optimistically-synchronized transactions.
//
// A Cell[T] wraps a value. Code reads and writes it inside a transaction
// body passed to Atomically; the runtime validates the transaction's
// reads against a global version clock at commit time and retries
// automatically on conflict.
//
//	counter := stm.NewCell(0)
//	_, err := stm.Atomically(nil, func(tx *stm.Tx) (struct{}, error) {
//		v, err := counter.OpenRW(tx)
//		if err != nil {
//			return struct{}{}, err
//		}
//		*v++
//		return struct{}{}, nil
//	})
//
// Transactions nest (Nested), compose with a retry-driven alternative
// (OrElse, Select), and carry commit-time point-in-time snapshots
// (Snapshot). See spec.md / SPEC_FULL.md and DESIGN.md in the repository
// root for the protocol this package implements and where each piece is
// grounded.
package stm
