// chat-cli is a small terminal client for the chat API. Anonymous chat
// works out of the box; logging in binds the conversation to an account.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	baseURL   = "http://localhost:3000"
	authToken string
	sessionID string
	persona   = "default"
	reader    = bufio.NewReader(os.Stdin)
	client    = &http.Client{Timeout: 90 * time.Second}
)

func main() {
	if url := os.Getenv("CHAT_API_URL"); url != "" {
		baseURL = url
	}
	fmt.Println("Chat CLI, talking to", baseURL)
	for {
		printMenu()
	}
}

func printMenu() {
	fmt.Println("\n=== Menu ===")
	fmt.Println("1. Chat")
	fmt.Println("2. View History")
	fmt.Println("3. Choose Persona (current: " + persona + ")")
	fmt.Println("4. New Session")
	if authToken == "" {
		fmt.Println("5. Login")
		fmt.Println("6. Register")
	} else {
		fmt.Println("5. Logout")
	}
	fmt.Println("0. Exit")
	fmt.Print("> ")

	choice, err := reader.ReadString('\n')
	if err != nil {
		os.Exit(0)
	}

	switch strings.TrimSpace(choice) {
	case "1":
		chatLoop()
	case "2":
		showHistory()
	case "3":
		choosePersona()
	case "4":
		newSession()
	case "5":
		if authToken == "" {
			login()
		} else {
			logout()
		}
	case "6":
		if authToken == "" {
			register()
		} else {
			fmt.Println("Invalid choice")
		}
	case "0":
		fmt.Println("Goodbye!")
		os.Exit(0)
	default:
		fmt.Println("Invalid choice")
	}
}

func prompt(label string) string {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil {
		os.Exit(0)
	}
	return strings.TrimSpace(input)
}

func chatLoop() {
	fmt.Println("Type 'exit' to leave the chat.")
	for {
		msg := prompt("You: ")
		if msg == "exit" {
			return
		}
		if msg == "" {
			continue
		}
		ask(msg)
	}
}

func ask(question string) {
	body := map[string]string{
		"question":   question,
		"session_id": sessionID,
		"persona":    persona,
	}
	raw, _ := json.Marshal(body)

	req, _ := http.NewRequest(http.MethodPost, baseURL+"/ask", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		fmt.Printf("Request failed (%d): %s\n", resp.StatusCode, string(payload))
		return
	}

	var result struct {
		Answer    string `json:"answer"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Bad response: %v\n", err)
		return
	}
	// The server mints an id on the first anonymous question; keep it so
	// the follow-ups share the conversation.
	sessionID = result.SessionID
	fmt.Println("Bot:", result.Answer)
}

func showHistory() {
	if sessionID == "" {
		fmt.Println("No session yet, ask something first.")
		return
	}

	resp, err := client.Get(baseURL + "/history?session_id=" + sessionID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Println("Failed to retrieve history")
		return
	}

	var result struct {
		History []struct {
			Question  string    `json:"question"`
			Answer    string    `json:"answer"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Bad response: %v\n", err)
		return
	}
	if len(result.History) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, turn := range result.History {
		stamp := turn.Timestamp.Format("15:04:05")
		fmt.Printf("[%s] You: %s\n[%s] Bot: %s\n", stamp, turn.Question, stamp, turn.Answer)
	}
}

func choosePersona() {
	resp, err := client.Get(baseURL + "/personas")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Personas []string `json:"personas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Bad response: %v\n", err)
		return
	}

	fmt.Println("Available personas:", strings.Join(result.Personas, ", "))
	choice := prompt("Persona: ")
	if choice != "" {
		persona = choice
	}
}

func newSession() {
	resp, err := client.Get(baseURL + "/generate-session")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Bad response: %v\n", err)
		return
	}
	sessionID = result.SessionID
	fmt.Println("New session:", sessionID)
}

func register() {
	username := prompt("Username: ")
	password := prompt("Password: ")

	raw, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(baseURL+"/register", "application/json", bytes.NewReader(raw))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		fmt.Printf("Registration failed: %s\n", string(payload))
		return
	}
	fmt.Println("Registered! Now login.")
}

func login() {
	username := prompt("Username: ")
	password := prompt("Password: ")

	raw, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(baseURL+"/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		fmt.Printf("Login failed: %s\n", string(payload))
		return
	}

	var result struct {
		AccessToken string `json:"access_token"`
		SessionID   string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.AccessToken == "" {
		fmt.Println("Login failed: invalid response or empty token")
		return
	}
	authToken = result.AccessToken
	sessionID = result.SessionID
	fmt.Println("Login successful!")
}

func logout() {
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/logout", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	resp.Body.Close()

	authToken = ""
	sessionID = ""
	fmt.Println("Logged out")
}
