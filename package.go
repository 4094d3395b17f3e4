// Package async provides a user-space coroutine runtime: single-shot
// futures and promises, a per-thread resumption queue, fan-out
// primitives built on top of them (shared futures, publishers,
// signals), an asynchronous mutex whose ownership transfers between
// suspended tasks, a pull-based generator, and a worker thread pool
// that integrates with the rest of the runtime.
//
// Key components:
//
//   - Future/Promise: a single-shot value cell with exactly one
//     producer (the Promise) and any number of consumers (awaiters
//     of the Future). Resolution drains a lock-free Chain of
//     awaiters and returns a SuspendPoint of now-runnable handles.
//
//   - Loop: the per-thread resumption queue. A setter that unblocks
//     several tasks returns to its own caller before any of them
//     runs, unless the caller explicitly opts into running them
//     first via SuspendPoint.Await.
//
//   - SharedFuture: a reference-counted Future usable from more than
//     one owner, pinned alive for as long as it is pending.
//
//   - AsyncTask: a goroutine-backed coroutine whose completion
//     resolves an associated Future.
//
//   - Generator: a pull-based coroutine yielding a lazy sequence of
//     values, optionally taking an argument on every advance.
//
//   - Mutex: a FIFO asynchronous mutex whose ownership Token can be
//     handed directly to the next waiter without going through the
//     queue's general FIFO wakeup order.
//
//   - Publisher/Subscriber, Signal: many-consumer broadcast
//     primitives built on the same Chain/SuspendPoint machinery as
//     Future.
//
//   - Scheduler, ThreadPool: timed promise resolution and a fixed
//     worker pool that can run suspend points across goroutines.
package async
