package main

import (
	"fmt"
	"os"
	"os/exec"
)

func main() {
	fmt.Println("Setting up top-up gateway development environment")

	if err := checkDocker(); err != nil {
		fmt.Printf("Docker issue detected: %v\n", err)
		fmt.Println("You can still run without containers: STORAGE_DRIVER=memory KAFKA_MOCK=true go run .")
		return
	}

	fmt.Println("Docker is running")
	fmt.Println("Starting MySQL, Kafka and Redis...")

	if err := run("docker", "compose", "up", "-d", "mysql", "kafka", "redis"); err != nil {
		fmt.Printf("Failed to start services: %v\n", err)
		fmt.Println("Try: STORAGE_DRIVER=memory KAFKA_MOCK=true go run .")
		return
	}

	fmt.Println("Applying database migrations...")
	if err := run("go", "run", ".", "migrate", "-env", "dev"); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		fmt.Println("MySQL may still be starting; rerun: go run . migrate")
		return
	}

	fmt.Println("Services started successfully!")
	fmt.Println("Next: set a webhook secret with PUT /api/v1/gateways/ikhode-bakong/secret, then go run .")
}

func checkDocker() error {
	return exec.Command("docker", "info").Run()
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
