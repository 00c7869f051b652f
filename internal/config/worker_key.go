package config

type WorkerKeyStruct struct {
	PersistAnswersQueue  string
	FinalizeCleanupQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:  "persist_answers_queue",
	FinalizeCleanupQueue: "finalize_cleanup_queue",
}
