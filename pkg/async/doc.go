// Package async provides futures for asynchronous computations with Go generics.
//
// # Core Types
//
// Future[U] represents the result of an asynchronous computation. It provides methods
// to wait for completion (Await, AwaitContext), check status without blocking (IsComplete),
// and handle timeouts (AwaitWithTimeout).
//
// # Usage
//
//	func fetchUser(ctx context.Context, userID int) (User, error) {
//		return repo.User(ctx, userID)
//	}
//
//	future := async.Async(ctx, 123, fetchUser)
//
//	// Do other work...
//
//	user, err := future.Await()
//
// Completed builds a future that is already resolved, which is handy for code paths
// that can answer synchronously but must honor a future-returning contract:
//
//	if cached, ok := cache.Get(id); ok {
//		return async.Completed(cached, nil)
//	}
//
// # Coordination Utilities
//
// WaitAll waits for all futures to complete and returns their results in order.
// It always waits for every future; failures are joined with errors.Join:
//
//	users, err := async.WaitAll(
//		async.Async(ctx, 1, fetchUser),
//		async.Async(ctx, 2, fetchUser),
//	)
//
// WaitAny returns as soon as any future completes:
//
//	index, user, err := async.WaitAny(futures...)
//
// # Error Handling
//
//   - ErrTimeout: returned when AwaitWithTimeout exceeds its duration
//   - ErrNoFutures: returned when WaitAny is called with no futures
//
// A panic inside a function started by Async does not crash the process: it is
// recovered and returned from Await as an error carrying the panic value and stack.
//
// # Context Support
//
// If the context is cancelled before the async function begins execution, the future
// resolves immediately with the context's error. Cancellation after start is the
// function's own responsibility.
package async
