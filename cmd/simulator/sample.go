package main

import "github.com/dom/quiz-engine/internal/domain"

func samplePackage() domain.Package {
	maxStake := 1000
	return domain.Package{
		Title:  "Simulator Sample",
		Author: "simulator",
		Rounds: []domain.Round{
			{
				ID: 1, Order: 0, Name: "Warm-up", Type: domain.RoundTypeSimple,
				Themes: []domain.Theme{
					{ID: 1, Name: "Geography", Questions: []domain.Question{
						{ID: 1, Price: 100, Type: domain.QuestionTypeSimple, Text: "Capital of Canada?", Answer: "Ottawa"},
						{ID: 2, Price: 200, Type: domain.QuestionTypeSimple, Text: "Longest river in Africa?", Answer: "Nile"},
						{ID: 3, Price: 300, Type: domain.QuestionTypeStake, Text: "Smallest country by area?", Answer: "Vatican City", MaxPrice: &maxStake},
					}},
					{ID: 2, Name: "Science", Questions: []domain.Question{
						{ID: 4, Price: 100, Type: domain.QuestionTypeSimple, Text: "Chemical symbol for gold?", Answer: "Au"},
						{ID: 5, Price: 200, Type: domain.QuestionTypeNoRisk, Text: "Planet with the most moons?", Answer: "Saturn"},
						{ID: 6, Price: 300, Type: domain.QuestionTypeSecret, Text: "Speed of light in km/s (rounded)?", Answer: "300000", TransferType: domain.TransferExceptCurrent},
					}},
				},
			},
			{
				ID: 2, Order: 1, Name: "Final", Type: domain.RoundTypeFinal,
				Themes: []domain.Theme{
					{ID: 10, Name: "History", Questions: []domain.Question{{ID: 10, Text: "Year the Berlin Wall fell?", Answer: "1989"}}},
					{ID: 11, Name: "Music", Questions: []domain.Question{{ID: 11, Text: "Composer of the Four Seasons?", Answer: "Vivaldi"}}},
					{ID: 12, Name: "Film", Questions: []domain.Question{{ID: 12, Text: "Director of Jaws?", Answer: "Steven Spielberg"}}},
				},
			},
		},
	}
}
