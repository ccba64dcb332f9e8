// The kiosk binary is the kid-facing client side of the engine: it submits
// chore completions and, when the server is unreachable, parks them in a
// durable queue that is replayed on the next start or explicit flush.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/AstroPony/KlusQuest/internal/logging"
	"github.com/AstroPony/KlusQuest/internal/offline"
)

func main() {
	logger := logging.Setup(os.Getenv("KIOSK_LOG_LEVEL"))

	serverURL := os.Getenv("KIOSK_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	token := os.Getenv("KIOSK_API_TOKEN")

	queuePath := os.Getenv("KIOSK_QUEUE_PATH")
	if queuePath == "" {
		queuePath = "kiosk-queue.json"
	}

	queue := offline.NewQueue(
		offline.NewFileRepository(queuePath),
		offline.NewHTTPSubmitter(serverURL, token),
		logger.With("component", "queue"),
	)

	ctx := context.Background()

	// Replay anything left over from a previous offline session.
	if report, err := queue.Flush(ctx); err != nil && !errors.Is(err, offline.ErrFlushInProgress) {
		logger.Warn("startup flush", "error", err)
	} else if report.Submitted > 0 || report.Dropped > 0 {
		logger.Info("startup flush", "submitted", report.Submitted, "dropped", report.Dropped, "remaining", report.Remaining)
	}

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "complete":
		if len(os.Args) != 4 {
			usage()
		}
		choreID := parseID(os.Args[2], "chore-id")
		kidID := parseID(os.Args[3], "kid-id")
		item := offline.Item{ChoreID: choreID, KidID: kidID}

		if err := queue.Enqueue(item); err != nil {
			log.Fatalf("enqueue: %v", err)
		}
		report, err := queue.Flush(ctx)
		if err != nil {
			log.Fatalf("flush: %v", err)
		}
		if report.Remaining > 0 {
			fmt.Printf("offline: completion queued (%d waiting)\n", report.Remaining)
		} else if report.Dropped > 0 {
			fmt.Println("completion rejected by server (already done today?)")
		} else {
			fmt.Println("completion submitted")
		}

	case "flush":
		report, err := queue.Flush(ctx)
		if err != nil {
			log.Fatalf("flush: %v", err)
		}
		fmt.Printf("submitted %d, dropped %d, remaining %d\n", report.Submitted, report.Dropped, report.Remaining)

	case "status":
		n, err := queue.Len()
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		fmt.Printf("%d queued completion(s)\n", n)

	default:
		usage()
	}
}

func parseID(s, name string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		log.Fatalf("invalid %s %q", name, s)
	}
	return id
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kiosk complete <chore-id> <kid-id> | kiosk flush | kiosk status")
	os.Exit(2)
}
