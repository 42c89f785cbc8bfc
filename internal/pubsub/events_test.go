package pubsub

// DeletedEvent is referenced by tea_test.go but is not part of the package API.
const DeletedEvent EventType = "deleted"
