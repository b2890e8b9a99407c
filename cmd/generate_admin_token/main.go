package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"vtc-dispatch/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	token, err := utils.GenerateAdminJWT()
	if err != nil {
		log.Fatalf("Ошибка генерации админ-токена: %v", err)
	}

	fmt.Printf("Generated admin token: %s\n", token)
}
