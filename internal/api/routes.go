package api

import (
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services bundles what the routes need.
type Services struct {
	Auth       service.AuthService
	Exercises  service.ExerciseService
	Visibility service.VisibilityResolver
	Patients   service.PatientService
	Assignment service.AssignmentService
}

func SetupRoutes(router *gin.Engine, jwtSecret string, services Services, log *logger.Logger) {
	authHandler := NewAuthHandler(services.Auth, log)
	exerciseHandler := NewExerciseHandler(services.Exercises, services.Visibility, log)
	patientHandler := NewPatientHandler(services.Patients, services.Assignment, services.Exercises, log)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			therapistID, err := getTherapistIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get therapist ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"therapistId": therapistID})
		})

		// --- Exercise Routes ---
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/stream", exerciseHandler.StreamExercises)
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.POST("/generate", exerciseHandler.GenerateExercise)

			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.GET("/:id/detail", exerciseHandler.GetExerciseDetail)
			exerciseGroup.PATCH("/:id", exerciseHandler.UpdateExercise)
			exerciseGroup.PUT("/:id/vnest", exerciseHandler.UpdateVNESTDetail)
			exerciseGroup.PUT("/:id/sr", exerciseHandler.UpdateSRDetail)
			exerciseGroup.DELETE("/:id", exerciseHandler.DeleteExercise)
			exerciseGroup.POST("/:id/personalize", exerciseHandler.PersonalizeExercise)
		}

		// --- Patient Routes ---
		patientGroup := protected.Group("/patients")
		{
			patientGroup.GET("", patientHandler.GetRoster)
			patientGroup.POST("", patientHandler.LinkPatient)
			patientGroup.GET("/:id", patientHandler.GetPatient)
			patientGroup.PATCH("/:id", patientHandler.UpdatePatient)

			// Exercise queue of the patient
			patientGroup.GET("/:id/assignments", patientHandler.GetAssignments)
			patientGroup.POST("/:id/assignments", patientHandler.AssignExercise)
			patientGroup.GET("/:id/assignments/stream", patientHandler.StreamAssignments)
		}
	}
}
