// Package scheduler keeps named daily tasks, the channel each one posts to,
// and the dispatcher that runs a task's payload when its trigger fires.
//
// One robfig/cron clock drives every task. A task is "running" while it has a
// cron entry; enabled is checked again at fire time.
package scheduler
