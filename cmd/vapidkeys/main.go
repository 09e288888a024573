// Command vapidkeys prints a fresh VAPID key pair for Web Push.
package main

import (
	"fmt"
	"log"

	"github.com/gracechurch/church-backend/internal/push"
)

func main() {
	publicKey, privateKey, err := push.GenerateVAPIDKeys()
	if err != nil {
		log.Fatalf("generate VAPID keys: %v", err)
	}
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
}
